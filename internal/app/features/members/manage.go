// internal/app/features/members/manage.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// grantable lists the roles a caller holding role may hand out. Only
// owners create owners.
func grantable(role models.Role) []models.Role {
	if role == models.RoleOwner {
		return models.AllRoles
	}
	return models.AllRoles[1:]
}

// target loads the {userID} membership in the workspace. It renders 404
// when there is none and 403 when the caller may not change it.
func (h *Handler) target(ctx context.Context, w http.ResponseWriter, r *http.Request, wsID primitive.ObjectID, g authz.Grant, listURL string) (primitive.ObjectID, models.Role, bool) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Member not found.", listURL)
		return primitive.NilObjectID, "", false
	}
	role, found, err := h.Memberships.RoleOf(ctx, wsID, userID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "membership lookup failed", err, "Unable to load the member.", listURL)
		return primitive.NilObjectID, "", false
	}
	if !found {
		h.ErrLog.NotFound(w, r, "Member not found.", listURL)
		return primitive.NilObjectID, "", false
	}
	if role == models.RoleOwner && g.Role != models.RoleOwner {
		uierrors.RenderForbidden(w, r, "Only an owner can change another owner.", listURL)
		return primitive.NilObjectID, "", false
	}
	return userID, role, true
}

// lastOwner reports whether taking the owner role from a current owner
// would leave the church without one.
func (h *Handler) lastOwner(ctx context.Context, wsID primitive.ObjectID, current models.Role) (bool, error) {
	if current != models.RoleOwner {
		return false, nil
	}
	n, err := h.Memberships.CountWithRole(ctx, wsID, models.RoleOwner)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

// HandleRole changes a member's role.
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r)
	if !ok {
		return
	}
	listURL := base(ws)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", listURL)
		return
	}
	role, valid := models.ParseRole(r.PostFormValue("role"))
	if !valid {
		h.ErrLog.LogBadRequest(w, r, "bad role", membershipstore.ErrBadRole, "Choose a valid role.", listURL)
		return
	}
	if role == models.RoleOwner && g.Role != models.RoleOwner {
		uierrors.RenderForbidden(w, r, "Only an owner can grant the owner role.", listURL)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	userID, current, ok := h.target(ctx, w, r, ws.ID, g, listURL)
	if !ok {
		return
	}
	if current == role {
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}
	if role != models.RoleOwner {
		last, err := h.lastOwner(ctx, ws.ID, current)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "count owners failed", err, "Unable to change the role.", listURL)
			return
		}
		if last {
			http.Redirect(w, r, listURL+"?error=last-owner", http.StatusSeeOther)
			return
		}
	}

	if err := h.Memberships.Grant(ctx, ws.ID, userID, role); err != nil {
		h.ErrLog.LogServerError(w, r, "grant role failed", err, "Unable to change the role.", listURL)
		return
	}
	h.AuditLog.RoleGranted(ctx, r, ws.ID, g.UserID, userID, string(role))

	http.Redirect(w, r, listURL+"?saved=1", http.StatusSeeOther)
}

// HandleRemove deletes a membership. The user account stays.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r)
	if !ok {
		return
	}
	listURL := base(ws)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	userID, current, ok := h.target(ctx, w, r, ws.ID, g, listURL)
	if !ok {
		return
	}
	last, err := h.lastOwner(ctx, ws.ID, current)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count owners failed", err, "Unable to remove the member.", listURL)
		return
	}
	if last {
		http.Redirect(w, r, listURL+"?error=last-owner", http.StatusSeeOther)
		return
	}

	err = h.Memberships.Remove(ctx, ws.ID, userID)
	if err != nil && !errors.Is(err, membershipstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "remove member failed", err, "Unable to remove the member.", listURL)
		return
	}
	h.AuditLog.MemberRemoved(ctx, r, ws.ID, g.UserID, userID)

	http.Redirect(w, r, listURL+"?saved=1", http.StatusSeeOther)
}
