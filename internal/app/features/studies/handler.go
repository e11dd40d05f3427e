// internal/app/features/studies/handler.go
package studies

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	studyplanstore "github.com/dalemusser/studyhub/internal/app/store/studyplans"
	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves study plans and study sessions. The same routes run in a
// personal workspace (/studies) and in a church (/{churchslug}/studies);
// the workspace comes from the request context either way.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	Authz    *authz.Authorizer
	Plans    *studyplanstore.Store
	Sessions *studysessionstore.Store
	Metrics  *metrics.Metrics

	now func() time.Time
}

func NewHandler(db *mongo.Database, az *authz.Authorizer, errLog *uierrors.ErrorLogger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		ErrLog:   errLog,
		Authz:    az,
		Plans:    studyplanstore.New(db),
		Sessions: studysessionstore.New(db),
		Metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// access authorizes the caller for allowed in the request's workspace and
// writes the denial response itself when it fails.
func (h *Handler) access(w http.ResponseWriter, r *http.Request, allowed []models.Role) (*models.Workspace, authz.Grant, bool) {
	ws := workspace.FromRequest(r)
	if ws == nil {
		h.ErrLog.LogServerError(w, r, "studies: no workspace in context", nil, "", "/")
		return nil, authz.Grant{}, false
	}
	caller, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	g, err := h.Authz.Authorize(ctx, caller, ws.ID, allowed)
	if err != nil {
		h.ErrLog.Deny(w, r, err)
		return nil, authz.Grant{}, false
	}
	return ws, g, true
}

// base is the URL prefix of the studies pages in ws.
func base(ws *models.Workspace) string {
	return ws.BasePath() + "/studies"
}
