package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/password"
	"github.com/flowline/fileauth/internal/infrastructure/store"
	"github.com/flowline/fileauth/internal/pkg/config"
	"github.com/flowline/fileauth/pkg/logger"
)

// openStore resolves the users file path and loads it. CLI commands log
// at warn level so per-entry skips still surface without info noise.
func openStore(explicit string) (*store.Store, error) {
	logger.Init(logger.Options{Level: "warn", Pretty: true})

	cfg, err := config.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	s := store.New(cfg.ResolveUsersFile(explicit))
	s.Load()
	return s, nil
}

func addUsersFileFlag(fs *pflag.FlagSet) *string {
	return fs.String("users-file", "", "path to the users file (overrides FILEAUTH_USERS_FILE)")
}

func runInit(args []string) error {
	fs := newFlagSet("init")
	usersFile := addUsersFileFlag(fs)
	force := fs.Bool("force", false, "overwrite an existing users file")
	passwd := fs.String("password", "", "admin password (prompted when omitted)")
	email := fs.String("email", "", "admin email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(logger.Options{Level: "warn", Pretty: true})
	cfg, err := config.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	path := cfg.ResolveUsersFile(*usersFile)

	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	pw := *passwd
	if pw == "" {
		if pw, err = promptPassword(true); err != nil {
			return err
		}
	}

	s := store.New(path)
	if _, err := s.AddUser(domain.NewUserParams{
		Username: "admin",
		Password: pw,
		Role:     domain.RoleAdmin,
		Email:    *email,
	}); err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	fmt.Printf("created %s with admin user %q\n", path, "admin")
	return nil
}

func runAddUser(args []string) error {
	fs := newFlagSet("add-user")
	usersFile := addUsersFileFlag(fs)
	username := fs.String("username", "", "username (required)")
	role := fs.String("role", domain.RoleViewer, "role: admin, editor, or viewer")
	email := fs.String("email", "", "email address")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	passwd := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	s, err := openStore(*usersFile)
	if err != nil {
		return err
	}

	pw := *passwd
	if pw == "" {
		if pw, err = promptPassword(true); err != nil {
			return err
		}
	}

	user, err := s.AddUser(domain.NewUserParams{
		Username:  *username,
		Password:  pw,
		Role:      *role,
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
	})
	if err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	fmt.Printf("added user %q with role %s\n", user.Username, user.Role)
	return nil
}

func runUpdateUser(args []string) error {
	fs := newFlagSet("update-user")
	usersFile := addUsersFileFlag(fs)
	username := fs.String("username", "", "username (required)")
	role := fs.String("role", "", "new role")
	email := fs.String("email", "", "new email address")
	firstName := fs.String("first-name", "", "new first name")
	lastName := fs.String("last-name", "", "new last name")
	active := fs.Bool("active", true, "activate (--active=true) or deactivate (--active=false)")
	changePassword := fs.Bool("password", false, "prompt for a new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	var patch domain.UserPatch
	if fs.Changed("role") {
		patch.Role = role
	}
	if fs.Changed("email") {
		patch.Email = email
	}
	if fs.Changed("first-name") {
		patch.FirstName = firstName
	}
	if fs.Changed("last-name") {
		patch.LastName = lastName
	}
	if fs.Changed("active") {
		patch.Active = active
	}

	s, err := openStore(*usersFile)
	if err != nil {
		return err
	}

	if *changePassword {
		pw, err := promptPassword(true)
		if err != nil {
			return err
		}
		patch.Password = &pw
	}
	if patch.Empty() {
		return errors.New("nothing to update")
	}

	user, err := s.UpdateUser(*username, patch)
	if err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	fmt.Printf("updated user %q\n", user.Username)
	return nil
}

func runDeleteUser(args []string) error {
	fs := newFlagSet("delete-user")
	usersFile := addUsersFileFlag(fs)
	username := fs.String("username", "", "username (required)")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	if !*yes {
		fmt.Fprintf(os.Stderr, "Delete user %q? [y/N]: ", *username)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	s, err := openStore(*usersFile)
	if err != nil {
		return err
	}
	if err := s.DeleteUser(*username); err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	fmt.Printf("deleted user %q\n", *username)
	return nil
}

func runListUsers(args []string) error {
	fs := newFlagSet("list-users")
	usersFile := addUsersFileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openStore(*usersFile)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tACTIVE\tEMAIL\tNAME")
	for _, u := range s.GetAllUsers() {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", u.Username, u.Role, u.Active, u.Email, u.DisplayName())
	}
	return w.Flush()
}

func runHashPassword(args []string) error {
	fs := newFlagSet("hash-password")
	passwd := fs.String("password", "", "password (prompted when omitted)")
	noValidate := fs.Bool("no-validate", false, "skip the password strength policy")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw := *passwd
	if pw == "" {
		var err error
		if pw, err = promptPassword(false); err != nil {
			return err
		}
	}

	var hash string
	var err error
	if *noValidate {
		hash, err = password.HashUnchecked(pw)
	} else {
		hash, err = password.Hash(pw)
	}
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
