// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/studyhub/internal/app/resources"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/studyhub/internal/app/store/workspaces"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the DB is connected and the schema ensured, before the
// handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	viewdata.SetSiteName("StudyHub")
	resources.LoadSharedTemplates()

	if appCfg.BootstrapChurchSlug != "" {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
		defer cancel()
		if err := ensureBootstrapChurch(ctx, deps, appCfg.BootstrapChurchSlug, appCfg.BootstrapChurchName, appCfg.BootstrapOwnerEmail, logger); err != nil {
			logger.Error("bootstrap church setup failed", zap.Error(err))
			return err
		}
	}
	return nil
}

// ensureBootstrapChurch makes sure the church slug exists and ownerEmail
// owns it. Existing churches and users are reused; an existing membership
// is raised to owner.
func ensureBootstrapChurch(ctx context.Context, deps DBDeps, slug, name, ownerEmail string, logger *zap.Logger) error {
	db := deps.MongoDatabase
	workspaces := workspacestore.New(db)

	ws, err := workspaces.LookupSlug(ctx, slug, false)
	if err != nil {
		return fmt.Errorf("lookup church %q: %w", slug, err)
	}
	if ws == nil {
		if name == "" {
			name = slug
		}
		created, err := workspaces.CreateChurch(ctx, name, slug)
		switch {
		case errors.Is(err, workspacestore.ErrDuplicateSlug):
			// Created concurrently by another instance.
			if ws, err = workspaces.LookupSlug(ctx, slug, false); err != nil || ws == nil {
				return fmt.Errorf("reload church %q: %v", slug, err)
			}
		case err != nil:
			return fmt.Errorf("create church %q: %w", slug, err)
		default:
			ws = &created
			logger.Info("created bootstrap church", zap.String("workspace", slug))
		}
	}

	owner, created, err := userstore.New(db).FindOrCreateByEmail(ctx, ownerEmail, "")
	if err != nil {
		return fmt.Errorf("owner %q: %w", ownerEmail, err)
	}
	if created {
		logger.Info("created bootstrap owner", zap.String("email", owner.Email))
	}

	if err := membershipstore.New(db).Grant(ctx, ws.ID, owner.ID, models.RoleOwner); err != nil {
		return fmt.Errorf("grant owner: %w", err)
	}
	return nil
}
