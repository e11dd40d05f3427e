// internal/app/features/members/handler.go
package members

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for a church's member list.
// Every route requires authz.AdminOnly.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Authz       *authz.Authorizer
	Users       *userstore.Store
	Memberships *membershipstore.Store
}

func NewHandler(db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		AuditLog:    audit,
		Authz:       az,
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
	}
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) (*models.Workspace, authz.Grant, bool) {
	ws := workspace.FromRequest(r)
	if ws == nil || ws.IsPersonal() {
		h.ErrLog.NotFound(w, r, "Page not found.", "/")
		return nil, authz.Grant{}, false
	}
	caller, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	g, err := h.Authz.Authorize(ctx, caller, ws.ID, authz.AdminOnly)
	if err != nil {
		h.ErrLog.Deny(w, r, err)
		return nil, authz.Grant{}, false
	}
	return ws, g, true
}

func base(ws *models.Workspace) string {
	return ws.BasePath() + "/manage/members"
}
