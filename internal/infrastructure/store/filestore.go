// Package store persists user records in a single YAML file. Writes go
// through a tempfile-plus-rename discipline so concurrent readers never
// observe a half-written file, advisory locks serialize access across
// processes, and an mtime poll picks up external edits.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/password"
	"github.com/flowline/fileauth/pkg/logger"
)

// FormatVersion tags the on-disk file format. Files carrying a
// different version still load, with a warning.
const FormatVersion = "1.0"

// hotReloadInterval bounds both staleness and stat-call frequency for
// the external-change check.
const hotReloadInterval = 5 * time.Second

// Store owns the file-backed user collection. All methods are safe for
// concurrent use from multiple goroutines; concurrent writers from
// multiple processes are serialized by the advisory lock, and the
// atomic rename keeps the file intact even without one.
type Store struct {
	path string
	log  zerolog.Logger

	mu        sync.Mutex
	users     map[string]*domain.User
	order     []string
	loaded    bool
	lastMtime time.Time
	lastCheck time.Time
}

// New returns a Store over the given backing file path. The file is
// loaded lazily on first access.
func New(path string) *Store {
	return &Store{
		path:  path,
		log:   logger.Get().With().Str("component", "userstore").Str("file", path).Logger(),
		users: make(map[string]*domain.User),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// usersFile is the persistence shape of the backing file.
type usersFile struct {
	Version string       `yaml:"version"`
	Users   []userRecord `yaml:"users"`
}

// userRecord maps one YAML entry onto the domain user, with optional
// fields defaulted and metadata passed through untouched.
type userRecord struct {
	Username     string         `yaml:"username"`
	PasswordHash string         `yaml:"password_hash"`
	Role         string         `yaml:"role"`
	Email        string         `yaml:"email,omitempty"`
	Active       *bool          `yaml:"active,omitempty"`
	FirstName    string         `yaml:"first_name,omitempty"`
	LastName     string         `yaml:"last_name,omitempty"`
	Metadata     map[string]any `yaml:"metadata,omitempty"`
}

func (r userRecord) toDomain() (*domain.User, error) {
	u := &domain.User{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Active:       r.Active == nil || *r.Active,
		Metadata:     r.Metadata,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func recordFromDomain(u *domain.User) userRecord {
	rec := userRecord{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Metadata:     u.Metadata,
	}
	if !u.Active {
		active := false
		rec.Active = &active
	}
	return rec
}

// Load replaces the in-memory collection with the file contents. A
// missing file yields an empty store; unreadable or unparsable content
// also yields an empty store with a logged error rather than a failure,
// so the authorization layer stays available. Entries that do not form
// a valid user are skipped individually.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

func (s *Store) loadLocked() {
	s.users = make(map[string]*domain.User)
	s.order = s.order[:0]
	s.loaded = true

	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn().Msg("users file not found, starting with empty store")
		} else {
			s.log.Error().Err(err).Msg("failed to stat users file")
		}
		return
	}

	lock, err := acquireLock(s.lockPath(), false)
	if err != nil {
		s.log.Debug().Err(err).Msg("shared lock unavailable, reading unlocked")
	} else {
		defer lock.release()
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read users file")
		return
	}
	s.lastMtime = info.ModTime()

	var file usersFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		s.log.Error().Err(err).Msg("failed to parse users file")
		return
	}

	if file.Version != "" && file.Version != FormatVersion {
		s.log.Warn().Str("version", file.Version).Msg("unknown users file version")
	}

	for _, rec := range file.Users {
		user, err := rec.toDomain()
		if err != nil {
			s.log.Error().Err(err).Str("username", rec.Username).Msg("skipping invalid user entry")
			continue
		}
		if _, exists := s.users[user.Username]; !exists {
			s.order = append(s.order, user.Username)
		}
		s.users[user.Username] = user
	}

	s.log.Info().Int("users", len(s.users)).Msg("loaded users file")
}

// Reload forces a fresh read of the backing file.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

// ensureLoadedLocked lazily loads on first access and afterwards runs
// the periodic hot-reload check: at most one stat per interval, reload
// when the mtime advanced.
func (s *Store) ensureLoadedLocked() {
	if !s.loaded {
		s.loadLocked()
		return
	}

	now := time.Now()
	if now.Sub(s.lastCheck) < hotReloadInterval {
		return
	}
	s.lastCheck = now

	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	if info.ModTime().After(s.lastMtime) {
		s.log.Info().Msg("users file changed externally, reloading")
		s.loadLocked()
	}
}

// Save serializes the collection to the backing file atomically: full
// write to a sibling temp file, fsync, then rename over the target.
// The previous file mode is preserved; new files are owner-only since
// they hold credential hashes. An exclusive advisory lock is held for
// the duration.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := usersFile{Version: FormatVersion}
	for _, username := range s.order {
		file.Users = append(file.Users, recordFromDomain(s.users[username]))
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	lock, err := acquireLock(s.lockPath(), true)
	if err != nil {
		s.log.Debug().Err(err).Msg("exclusive lock unavailable, relying on atomic rename")
	} else {
		defer lock.release()
	}

	mode := os.FileMode(0o600)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".users-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	tmpName = ""

	if info, err := os.Stat(s.path); err == nil {
		s.lastMtime = info.ModTime()
	}

	s.log.Info().Int("users", len(s.users)).Msg("saved users file")
	return nil
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// GetUser returns the user for username, or nil when absent.
func (s *Store) GetUser(username string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	return s.users[username].Clone()
}

// GetAllUsers lists every user in insertion order. For listing only;
// authorization decisions go through GetUser/Authenticate.
func (s *Store) GetAllUsers() []*domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	out := make([]*domain.User, 0, len(s.order))
	for _, username := range s.order {
		out = append(out, s.users[username].Clone())
	}
	return out
}

// UserExists reports whether username is present.
func (s *Store) UserExists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	_, ok := s.users[username]
	return ok
}

// Count returns the number of loaded users.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	return len(s.users)
}

// Authenticate verifies username/password and returns the user on
// success, nil otherwise. Every failure path (unknown user, inactive
// account, wrong password) yields the same nil result and pays a full
// hash verification, so neither the response nor its timing tells an
// unknown username apart from a bad password. The reason is only
// visible in the audit log.
func (s *Store) Authenticate(username, passwd string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	user, ok := s.users[username]
	if !ok {
		// Burn a full verification so an unknown username costs the
		// same as a wrong password.
		password.VerifyDummy(passwd)
		logger.Audit().Str("username", username).Str("reason", "unknown_user").Msg("authentication failed")
		return nil
	}
	if !user.Active {
		password.VerifyDummy(passwd)
		logger.Audit().Str("username", username).Str("reason", "inactive").Msg("authentication failed")
		return nil
	}
	if !password.Verify(passwd, user.PasswordHash) {
		logger.Audit().Str("username", username).Str("reason", "bad_password").Msg("authentication failed")
		return nil
	}

	logger.Audit().Str("username", username).Msg("authentication succeeded")
	return user.Clone()
}

// AddUser creates a new user from params, hashing the password with
// policy validation. Returns ErrDuplicateUser when the username is
// taken. The change is memory-only until Save.
func (s *Store) AddUser(params domain.NewUserParams) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	if _, exists := s.users[params.Username]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateUser, params.Username)
	}

	hash, err := password.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := domain.NewUser(params.Username, hash, params.Role)
	if err != nil {
		return nil, err
	}
	user.Email = params.Email
	user.FirstName = params.FirstName
	user.LastName = params.LastName

	s.users[user.Username] = user
	s.order = append(s.order, user.Username)

	logger.Audit().Str("username", user.Username).Str("role", user.Role).Msg("user created")
	return user.Clone(), nil
}

// UpdateUser applies a partial update to an existing user. Nil patch
// fields are untouched; password changes re-hash with policy
// validation; role changes are validated. Returns ErrUserNotFound for
// an absent username. The change is memory-only until Save.
func (s *Store) UpdateUser(username string, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	user, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}

	var changes []string

	if patch.Password != nil {
		hash, err := password.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changes = append(changes, "password")
	}
	if patch.Role != nil {
		if !domain.ValidRole(*patch.Role) {
			return nil, fmt.Errorf("%w (got %q)", domain.ErrInvalidRole, *patch.Role)
		}
		changes = append(changes, fmt.Sprintf("role: %s -> %s", user.Role, *patch.Role))
		user.Role = *patch.Role
	}
	if patch.Email != nil {
		user.Email = *patch.Email
		changes = append(changes, "email")
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
		changes = append(changes, "first_name")
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
		changes = append(changes, "last_name")
	}
	if patch.Active != nil {
		changes = append(changes, fmt.Sprintf("active: %t -> %t", user.Active, *patch.Active))
		user.Active = *patch.Active
	}

	logger.Audit().Str("username", username).Strs("changes", changes).Msg("user updated")
	return user.Clone(), nil
}

// DeleteUser removes a user. Returns ErrUserNotFound for an absent
// username. The change is memory-only until Save.
func (s *Store) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}

	delete(s.users, username)
	for i, name := range s.order {
		if name == username {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	logger.Audit().Str("username", username).Msg("user deleted")
	return nil
}
