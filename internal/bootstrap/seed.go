package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/hivecrm/contactbook/internal/config"
	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/password"
	"github.com/hivecrm/contactbook/internal/repository"
	"github.com/hivecrm/contactbook/internal/rolecache"
)

// Seed makes sure the role reference data exists and provisions the optional
// admin account configured through the environment.
func Seed(cfg config.Config, users repository.UserRepository, roles repository.RoleRepository, cache *rolecache.Cache, node *snowflake.Node, logger *zap.Logger) error {
	ctx := context.Background()

	for _, name := range []string{domain.RoleUser, domain.RoleAdmin} {
		role := domain.Role{ID: node.Generate().Int64(), Name: name}
		if err := roles.Ensure(ctx, role); err != nil {
			return fmt.Errorf("ensure role %q: %w", name, err)
		}
		cache.Invalidate(name)
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := users.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check admin account: %w", err)
	}

	adminRole, err := cache.Get(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := domain.User{
		ID:           node.Generate().Int64(),
		Username:     "admin",
		Email:        cfg.AdminEmail,
		PasswordHash: hashed,
		IsActive:     true,
		RoleID:       adminRole.ID,
		RoleName:     adminRole.Name,
	}
	if _, err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil
		}
		return fmt.Errorf("create admin account: %w", err)
	}

	logger.Info("admin account provisioned", zap.String("email", cfg.AdminEmail))
	return nil
}
