// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a church's audit trail to its admins.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Authz  *authz.Authorizer
	Events *audit.Store
	Users  *userstore.Store
}

func NewHandler(db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
		Authz:  az,
		Events: audit.New(db),
		Users:  userstore.New(db),
	}
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) (*models.Workspace, bool) {
	ws := workspace.FromRequest(r)
	if ws == nil || ws.IsPersonal() {
		h.ErrLog.NotFound(w, r, "Page not found.", "/")
		return nil, false
	}
	caller, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if _, err := h.Authz.Authorize(ctx, caller, ws.ID, authz.AdminOnly); err != nil {
		h.ErrLog.Deny(w, r, err)
		return nil, false
	}
	return ws, true
}
