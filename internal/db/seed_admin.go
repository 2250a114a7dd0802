package db

import (
	"context"
	"errors"

	"github.com/geocoder89/carebook/internal/config"
	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/geocoder89/carebook/internal/security"
)

type AdminSeeder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error)
}

// EnsureAdminUser creates the configured admin account when it is missing.
// Without ADMIN_EMAIL/ADMIN_PASSWORD it does nothing.
func EnsureAdminUser(ctx context.Context, users AdminSeeder, cfg config.Config) error {
	email := user.NormalizeEmail(cfg.AdminEmail)
	if email == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	_, err = users.Create(ctx, cfg.AdminName, email, hash, user.RoleAdmin)
	if errors.Is(err, user.ErrEmailAlreadyUsed) {
		// another instance seeded it first
		return nil
	}
	return err
}
