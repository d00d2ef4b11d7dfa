// Command authctl performs administrative tasks against the auth backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dtroode/valhalla-auth/internal/config"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/notify"
	"github.com/dtroode/valhalla-auth/internal/password"
	"github.com/dtroode/valhalla-auth/internal/repository/postgres"
	"github.com/dtroode/valhalla-auth/internal/requestctx"
	"github.com/dtroode/valhalla-auth/internal/service"
)

const usage = `usage:
  authctl hash
  authctl create-user -email EMAIL [-role USER|ADMIN|MODERATOR] [-name NAME] [-password]
  authctl set-password -email EMAIL`

var errUsage = errors.New(usage)

// UserAdmin performs operator-level identity changes.
type UserAdmin interface {
	Register(ctx context.Context, params model.RegisterParams) (model.User, error)
	ChangePassword(ctx context.Context, email, newPassword string) error
}

type app struct {
	out          io.Writer
	readPassword func() ([]byte, error)
	hasher       model.PasswordHasher
	// users opens the backing store; the returned func releases it.
	users func(ctx context.Context) (UserAdmin, func(), error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse config: %v\n", err)
		os.Exit(1)
	}
	logger := logger.New(cfg.LogLevel)
	hasher := password.NewHasher(cfg.Password.Cost, cfg.Password.MaxConcurrent)

	a := &app{
		out:          os.Stdout,
		readPassword: promptPassword,
		hasher:       hasher,
		users: func(ctx context.Context) (UserAdmin, func(), error) {
			db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
			if err != nil {
				return nil, nil, err
			}
			userRepo := postgres.NewUserRepository(db)
			setup := service.NewPasswordSetup(userRepo, postgres.NewResetTokenRepository(db), hasher, notify.NewLog(logger), logger,
				service.WithResetTTL(cfg.Reset.TTL),
				service.WithResetBaseURL(cfg.Reset.BaseURL),
			)
			users := service.NewUsers(userRepo, hasher, setup, requestctx.NewManager(), logger)
			return users, func() { _ = db.Close() }, nil
		},
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func promptPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Enter password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return pw, err
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "hash":
		return a.hash(ctx)
	case "create-user":
		return a.createUser(ctx, args[1:])
	case "set-password":
		return a.setPassword(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

func (a *app) hash(ctx context.Context) error {
	pw, err := a.readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	hash, err := a.hasher.Hash(ctx, string(pw))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.out, hash)
	return err
}

func (a *app) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "identity email")
	role := fs.String("role", string(model.RoleUser), "identity role")
	name := fs.String("name", "", "display name")
	withPassword := fs.Bool("password", false, "prompt for a password instead of sending a set-password link")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%w", err, errUsage)
	}
	if *email == "" {
		return fmt.Errorf("-email is required\n%w", errUsage)
	}

	params := model.RegisterParams{
		Email: *email,
		Role:  model.Role(*role),
		Name:  *name,
	}
	if *withPassword {
		pw, err := a.readPassword()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		params.Password = string(pw)
	}

	users, release, err := a.users(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer release()

	user, err := users.Register(ctx, params)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.out, "created %s (%s) with role %s\n", user.Email, user.ID, user.Role)
	return err
}

func (a *app) setPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "identity email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%w", err, errUsage)
	}
	if *email == "" {
		return fmt.Errorf("-email is required\n%w", errUsage)
	}

	pw, err := a.readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	users, release, err := a.users(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer release()

	if err := users.ChangePassword(ctx, *email, string(pw)); err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.out, "password changed for %s\n", *email)
	return err
}
