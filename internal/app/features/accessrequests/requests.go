// internal/app/features/accessrequests/requests.go
package accessrequests

import (
	"context"
	"errors"
	"net/http"
	"strings"

	accessrequeststore "github.com/dalemusser/studyhub/internal/app/store/accessrequests"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Requester side                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRequestForm(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.church(w, r)
	if !ok {
		return
	}
	caller, userID, signedIn := authz.UserCtx(r)
	if !signedIn {
		h.ErrLog.Deny(w, r, authz.ErrUnauthenticated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, member, err := h.Authz.Role(ctx, caller, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "membership lookup failed", err, "Unable to load the form.", ws.BasePath())
		return
	}
	if member {
		http.Redirect(w, r, ws.BasePath(), http.StatusSeeOther)
		return
	}
	pending, err := h.Requests.HasPending(ctx, ws.ID, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "pending lookup failed", err, "Unable to load the form.", ws.BasePath())
		return
	}

	templates.Render(w, r, "accessrequests_form", requestFormData{
		BaseVM:  viewdata.NewBaseVM(r, "Request access", ws.BasePath()),
		Action:  ws.BasePath() + "/request-access",
		Roles:   RequestableRoles,
		Role:    string(models.RoleParticipant),
		Pending: pending,
	})
}

// HandleSubmit files a request. A second request while one is pending is
// absorbed and answered like the first.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.church(w, r)
	if !ok {
		return
	}
	caller, userID, signedIn := authz.UserCtx(r)
	if !signedIn {
		h.ErrLog.Deny(w, r, authz.ErrUnauthenticated)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", ws.BasePath())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, member, err := h.Authz.Role(ctx, caller, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "membership lookup failed", err, "Unable to send the request.", ws.BasePath())
		return
	}
	if member {
		http.Redirect(w, r, ws.BasePath(), http.StatusSeeOther)
		return
	}

	in := requestInput{
		Role:    strings.TrimSpace(r.FormValue("role")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}
	res := inputval.Validate(in)
	role, _ := models.ParseRole(in.Role)
	if !res.HasErrors() && !requestable(role) {
		res.Errors = append(res.Errors, inputval.FieldError{Field: "Role", Message: "Role is not a valid choice."})
	}
	if res.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "accessrequests_form", requestFormData{
			BaseVM:  viewdata.NewBaseVM(r, "Request access", ws.BasePath()),
			Action:  ws.BasePath() + "/request-access",
			Roles:   RequestableRoles,
			Role:    in.Role,
			Message: in.Message,
			Errors:  res.Errors,
		})
		return
	}

	req, err := h.Requests.Submit(ctx, ws.ID, userID, role, in.Message, h.now())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "submit access request failed", err, "Unable to send the request.", ws.BasePath())
		return
	}
	if req != nil {
		h.AuditLog.AccessRequested(ctx, r, ws.ID, userID, string(role))
	}

	http.Redirect(w, r, ws.BasePath()+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin side                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.admin(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pending, err := h.Requests.ListPending(ctx, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list access requests failed", err, "Unable to load requests.", ws.BasePath())
		return
	}
	ids := make([]primitive.ObjectID, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.UserID)
	}
	users, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load requesters failed", err, "Unable to load requests.", ws.BasePath())
		return
	}

	rows := make([]pendingRow, 0, len(pending))
	for _, p := range pending {
		u := users[p.UserID]
		rows = append(rows, pendingRow{
			ID:        p.ID.Hex(),
			Name:      u.DisplayName(),
			Email:     u.Email,
			Role:      p.RequestedRole,
			Message:   p.Message,
			Requested: p.CreatedAt.Format("2006-01-02"),
		})
	}

	templates.Render(w, r, "accessrequests_pending", pendingData{
		BaseVM: viewdata.NewBaseVM(r, "Access requests", ws.BasePath()),
		Base:   ws.BasePath() + "/manage/requests",
		Rows:   rows,
		Stale:  query.Get(r, "stale") == "1",
	})
}

// HandleDecide approves or denies one request. A request another admin
// already decided sends the caller back to the list with a notice.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.admin(w, r)
	if !ok {
		return
	}
	listURL := ws.BasePath() + "/manage/requests"
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", listURL)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "requestID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Request not found.", listURL)
		return
	}
	decision, ok := accessrequeststore.ParseDecision(r.PostFormValue("decision"))
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "bad decision", accessrequeststore.ErrBadDecision, "Choose approve or deny.", listURL)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	req, err := h.Requests.Decide(ctx, id, ws.ID, decision, g.UserID, h.now())
	switch {
	case errors.Is(err, accessrequeststore.ErrNotFound):
		h.ErrLog.NotFound(w, r, "Request not found.", listURL)
		return
	case errors.Is(err, accessrequeststore.ErrAlreadyDecided):
		h.Log.Info("access request already decided", zap.String("request_id", id.Hex()))
		http.Redirect(w, r, listURL+"?stale=1", http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "decide access request failed", err, "Unable to record the decision.", listURL)
		return
	}

	approved := decision == accessrequeststore.Approve
	h.AuditLog.AccessDecided(ctx, r, ws.ID, g.UserID, req.UserID, approved, string(req.RequestedRole))
	if req.RoleGranted {
		h.AuditLog.RoleGranted(ctx, r, ws.ID, g.UserID, req.UserID, string(req.RequestedRole))
	}
	h.Metrics.IncAccessDecision(string(decision))

	http.Redirect(w, r, listURL+"?saved=1", http.StatusSeeOther)
}
