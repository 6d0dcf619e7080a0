// Command fileauth manages the file-backed user store and serves the
// authentication API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/flowline/fileauth/internal/api"
	"github.com/flowline/fileauth/internal/api/metrics"
	"github.com/flowline/fileauth/internal/core/service"
	"github.com/flowline/fileauth/internal/infrastructure/db/redis"
	"github.com/flowline/fileauth/internal/infrastructure/store"
	"github.com/flowline/fileauth/internal/pkg/config"
	"github.com/flowline/fileauth/pkg/logger"
)

const usage = `Usage: fileauth <command> [flags]

Commands:
  serve          Start the authentication API server
  init           Create an empty users file
  add-user       Add a user to the users file
  update-user    Modify an existing user
  delete-user    Remove a user from the users file
  list-users     Print the users file contents
  hash-password  Hash a password for manual file edits

Run 'fileauth <command> --help' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "serve":
		err = runServe(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "add-user":
		err = runAddUser(os.Args[2:])
	case "update-user":
		err = runUpdateUser(os.Args[2:])
	case "delete-user":
		err = runDeleteUser(os.Args[2:])
	case "list-users":
		err = runListUsers(os.Args[2:])
	case "hash-password":
		err = runHashPassword(os.Args[2:])
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "fileauth: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fileauth: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting,
// so main keeps control of exit codes.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func runServe(args []string) error {
	fs := newFlagSet("serve")
	usersFile := fs.String("users-file", "", "path to the users file (overrides FILEAUTH_USERS_FILE)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	path := cfg.ResolveUsersFile(*usersFile)
	userStore := store.New(path)
	userStore.Load()
	metrics.UsersLoaded.Set(float64(userStore.Count()))
	log.Info().Str("users_file", path).Int("users", userStore.Count()).Msg("user store loaded")

	watcher, err := store.NewWatcher(userStore, func() {
		metrics.StoreReloadsTotal.WithLabelValues("watcher").Inc()
		metrics.UsersLoaded.Set(float64(userStore.Count()))
	})
	if err != nil {
		log.Warn().Err(err).Msg("file watcher unavailable, falling back to polling only")
	} else {
		go watcher.Run(ctx)
	}

	var throttle *redis.LoginThrottle
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		throttle = redis.NewLoginThrottle(client, cfg.Throttle.MaxFailures, cfg.Throttle.Window)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttle enabled")
	}

	authService := service.NewAuthService(userStore, cfg.JWTSecret, cfg.TokenTTL)
	e := api.NewRouter(userStore, authService, throttle)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
