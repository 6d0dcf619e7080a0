package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/password"
)

const testPassword = "Sup3rSecret!"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "users.yaml"))
}

func mustAdd(t *testing.T, s *Store, username, role string) *domain.User {
	t.Helper()
	u, err := s.AddUser(domain.NewUserParams{Username: username, Password: testPassword, Role: role})
	if err != nil {
		t.Fatalf("AddUser(%s): %v", username, err)
	}
	return u
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	s := newTestStore(t)
	s.Load()
	if got := len(s.GetAllUsers()); got != 0 {
		t.Fatalf("expected empty store, got %d users", got)
	}
}

func TestLoad_MalformedFileYieldsEmptyStore(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not: [valid: yaml"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s.Load()
	if got := len(s.GetAllUsers()); got != 0 {
		t.Fatalf("expected empty store after parse failure, got %d users", got)
	}
}

func TestLoad_SkipsInvalidEntries(t *testing.T) {
	s := newTestStore(t)
	content := `version: "1.0"
users:
  - username: alice
    password_hash: $2b$12$hash
    role: admin
  - username: broken
    password_hash: $2b$12$hash
    role: superuser
  - username: ""
    password_hash: $2b$12$hash
    role: viewer
  - username: bob
    password_hash: $2b$12$hash
    role: viewer
`
	if err := os.WriteFile(s.Path(), []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s.Load()

	users := s.GetAllUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 valid users, got %d", len(users))
	}
	if users[0].Username != "alice" || users[1].Username != "bob" {
		t.Fatalf("unexpected users: %s, %s", users[0].Username, users[1].Username)
	}
}

func TestLoad_UnknownVersionStillLoads(t *testing.T) {
	s := newTestStore(t)
	content := `version: "9.9"
users:
  - username: alice
    password_hash: $2b$12$hash
    role: admin
`
	if err := os.WriteFile(s.Path(), []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s.Load()
	if !s.UserExists("alice") {
		t.Fatalf("users from unknown version should still load")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)
	bob := mustAdd(t, s, "bob", domain.RoleViewer)
	if _, err := s.UpdateUser("bob", domain.UserPatch{Active: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := New(s.Path())
	fresh.Load()

	users := fresh.GetAllUsers()
	if len(users) != 2 {
		t.Fatalf("expected 2 users after reload, got %d", len(users))
	}
	got := fresh.GetUser("bob")
	if got == nil {
		t.Fatalf("bob missing after reload")
	}
	if got.Active {
		t.Fatalf("active flag not persisted")
	}
	if got.Role != domain.RoleViewer {
		t.Fatalf("role not persisted: %s", got.Role)
	}
	if got.PasswordHash != bob.PasswordHash {
		t.Fatalf("hash changed across round trip")
	}
}

func TestSave_MetadataRoundTrips(t *testing.T) {
	s := newTestStore(t)
	content := `version: "1.0"
users:
  - username: alice
    password_hash: $2b$12$hash
    role: admin
    metadata:
      team: infra
      badge: 42
`
	if err := os.WriteFile(s.Path(), []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s.Load()
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := New(s.Path())
	fresh.Load()
	u := fresh.GetUser("alice")
	if u == nil || u.Metadata == nil {
		t.Fatalf("metadata lost on round trip: %+v", u)
	}
	if u.Metadata["team"] != "infra" {
		t.Fatalf("metadata value lost: %v", u.Metadata)
	}
}

func TestSave_NewFileIsOwnerOnly(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 on new file, got %o", perm)
	}
}

func TestSave_PreservesExistingMode(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("version: \"1.0\"\nusers: []\n"), 0o640); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s.Load()
	mustAdd(t, s, "alice", domain.RoleAdmin)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o640 {
		t.Fatalf("expected mode preserved as 0640, got %o", perm)
	}
}

func TestSave_ConcurrentReadersNeverSeeTornFile(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		mustAdd(t, s, name, domain.RoleViewer)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("initial Save: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			raw, err := os.ReadFile(s.Path())
			if err != nil {
				continue
			}
			var file usersFile
			if err := yaml.Unmarshal(raw, &file); err != nil {
				t.Errorf("reader observed unparsable file: %v", err)
				return
			}
			if n := len(file.Users); n != 4 && n != 5 {
				t.Errorf("reader observed partial content: %d users", n)
				return
			}
		}
	}()

	mustAdd(t, s, "erin", domain.RoleEditor)
	for i := 0; i < 25; i++ {
		if err := s.Save(); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleEditor)

	if u := s.Authenticate("alice", testPassword); u == nil || u.Username != "alice" {
		t.Fatalf("expected successful authentication, got %+v", u)
	}
	if u := s.Authenticate("alice", "WrongPass1!"); u != nil {
		t.Fatalf("wrong password must not authenticate")
	}
	if u := s.Authenticate("ghost", testPassword); u != nil {
		t.Fatalf("unknown user must not authenticate")
	}
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleEditor)
	if _, err := s.UpdateUser("alice", domain.UserPatch{Active: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u := s.Authenticate("alice", testPassword); u != nil {
		t.Fatalf("inactive user must not authenticate")
	}
}

func TestAuthenticate_UniformFailureCost(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)
	mustAdd(t, s, "bob", domain.RoleViewer)
	if _, err := s.UpdateUser("bob", domain.UserPatch{Active: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	elapsed := func(username, passwd string) time.Duration {
		start := time.Now()
		if got := s.Authenticate(username, passwd); got != nil {
			t.Fatalf("Authenticate(%s) unexpectedly succeeded", username)
		}
		return time.Since(start)
	}

	wrong := elapsed("alice", "Wr0ng!pass99")
	unknown := elapsed("ghost", "Wr0ng!pass99")
	inactive := elapsed("bob", testPassword)

	// A wrong password pays a full cost-12 verification (hundreds of
	// milliseconds); the other failure paths must be in the same
	// ballpark, not microseconds.
	if unknown < wrong/4 {
		t.Fatalf("unknown-user path too fast: %v vs %v for wrong password", unknown, wrong)
	}
	if inactive < wrong/4 {
		t.Fatalf("inactive-user path too fast: %v vs %v for wrong password", inactive, wrong)
	}
}

func TestAddUser_Duplicate(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)

	_, err := s.AddUser(domain.NewUserParams{Username: "alice", Password: testPassword, Role: domain.RoleViewer})
	if !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	if got := s.GetUser("alice"); got.Role != domain.RoleAdmin {
		t.Fatalf("duplicate add must not alter existing record")
	}
}

func TestAddUser_HashesPassword(t *testing.T) {
	s := newTestStore(t)
	u := mustAdd(t, s, "alice", domain.RoleAdmin)
	if u.PasswordHash == testPassword || !strings.HasPrefix(u.PasswordHash, "$2") {
		t.Fatalf("password not bcrypt-hashed: %q", u.PasswordHash)
	}
	if !password.Verify(testPassword, u.PasswordHash) {
		t.Fatalf("stored hash does not verify")
	}
}

func TestAddUser_RejectsWeakPassword(t *testing.T) {
	s := newTestStore(t)
	var pe *password.PolicyError
	_, err := s.AddUser(domain.NewUserParams{Username: "alice", Password: "weak", Role: domain.RoleAdmin})
	if !errors.As(err, &pe) {
		t.Fatalf("expected PolicyError, got %v", err)
	}
	if s.UserExists("alice") {
		t.Fatalf("user must not be created on policy violation")
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateUser("ghost", domain.UserPatch{Email: strPtr("g@example.com")})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if s.UserExists("ghost") {
		t.Fatalf("update must not create users")
	}
}

func TestUpdateUser_PartialFields(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleViewer)

	updated, err := s.UpdateUser("alice", domain.UserPatch{
		Role:  strPtr(domain.RoleEditor),
		Email: strPtr("alice@example.com"),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != domain.RoleEditor || updated.Email != "alice@example.com" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if !updated.Active {
		t.Fatalf("untouched field changed")
	}
	if !password.Verify(testPassword, updated.PasswordHash) {
		t.Fatalf("password changed without a password patch")
	}
}

func TestUpdateUser_InvalidRole(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleViewer)
	_, err := s.UpdateUser("alice", domain.UserPatch{Role: strPtr("root")})
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if got := s.GetUser("alice"); got.Role != domain.RoleViewer {
		t.Fatalf("role changed despite rejection")
	}
}

func TestUpdateUser_RehashesPassword(t *testing.T) {
	s := newTestStore(t)
	before := mustAdd(t, s, "alice", domain.RoleViewer)

	updated, err := s.UpdateUser("alice", domain.UserPatch{Password: strPtr("N3wSecret!pw")})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.PasswordHash == before.PasswordHash {
		t.Fatalf("hash unchanged after password update")
	}
	if s.Authenticate("alice", "N3wSecret!pw") == nil {
		t.Fatalf("new password does not authenticate")
	}
	if s.Authenticate("alice", testPassword) != nil {
		t.Fatalf("old password still authenticates")
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleViewer)

	if err := s.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if s.GetUser("alice") != nil {
		t.Fatalf("deleted user still present")
	}
	if err := s.DeleteUser("alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestHotReload_PicksUpExternalChange(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.UserExists("alice") {
		t.Fatalf("alice missing before external change")
	}

	external := New(s.Path())
	external.Load()
	mustAdd(t, external, "bob", domain.RoleViewer)
	if err := external.Save(); err != nil {
		t.Fatalf("external Save: %v", err)
	}

	// Force the poll window open and the mtime comparison forward
	// instead of sleeping through the real interval.
	s.mu.Lock()
	s.lastCheck = s.lastCheck.Add(-2 * hotReloadInterval)
	s.lastMtime = s.lastMtime.Add(-time.Hour)
	s.mu.Unlock()

	if !s.UserExists("bob") {
		t.Fatalf("hot reload did not pick up external change")
	}
}

func TestGetAllUsers_PreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	names := []string{"zoe", "alice", "mike"}
	for _, n := range names {
		mustAdd(t, s, n, domain.RoleViewer)
	}
	users := s.GetAllUsers()
	for i, n := range names {
		if users[i].Username != n {
			t.Fatalf("order not preserved: got %s at %d, want %s", users[i].Username, i, n)
		}
	}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
