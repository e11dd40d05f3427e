// internal/app/features/courseadmin/handler.go
package courseadmin

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the course editor for instructors and church admins. Every
// route requires authz.CourseEditor in the resolved church.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Authz    *authz.Authorizer
	Courses  *coursestore.Store
	Sessions *coursesessionstore.Store
	AuditLog *auditlog.Logger

	now func() time.Time
}

func NewHandler(db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Authz:    az,
		Courses:  coursestore.New(db),
		Sessions: coursesessionstore.New(db),
		AuditLog: audit,
		now:      func() time.Time { return time.Now().UTC() },
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
	g, err := h.Authz.Authorize(ctx, caller, ws.ID, authz.CourseEditor)
	if err != nil {
		h.ErrLog.Deny(w, r, err)
		return nil, authz.Grant{}, false
	}
	return ws, g, true
}

func base(ws *models.Workspace) string {
	return ws.BasePath() + "/manage/courses"
}
