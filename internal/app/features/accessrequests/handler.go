// internal/app/features/accessrequests/handler.go
package accessrequests

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	accessrequeststore "github.com/dalemusser/studyhub/internal/app/store/accessrequests"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RequestableRoles are the roles a non-member may ask for. Owner and admin
// are only granted by an existing admin.
var RequestableRoles = []models.Role{models.RoleParticipant, models.RoleLeader, models.RoleInstructor}

// Handler serves both sides of the access request workflow: signed-in
// non-members asking to join, and church admins deciding.
type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Authz    *authz.Authorizer
	Requests *accessrequeststore.Store
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics

	now func() time.Time
}

func NewHandler(client *mongo.Client, db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		Authz:    az,
		Requests: accessrequeststore.New(client, db),
		Users:    userstore.New(db),
		AuditLog: audit,
		Metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// church returns the resolved church, rendering 404 for personal
// workspaces, which nobody can request to join.
func (h *Handler) church(w http.ResponseWriter, r *http.Request) (*models.Workspace, bool) {
	ws := workspace.FromRequest(r)
	if ws == nil || ws.IsPersonal() {
		h.ErrLog.NotFound(w, r, "Page not found.", "/")
		return nil, false
	}
	return ws, true
}

// admin authorizes the caller as a church admin.
func (h *Handler) admin(w http.ResponseWriter, r *http.Request) (*models.Workspace, authz.Grant, bool) {
	ws, ok := h.church(w, r)
	if !ok {
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

func requestable(role models.Role) bool {
	for _, r := range RequestableRoles {
		if r == role {
			return true
		}
	}
	return false
}
