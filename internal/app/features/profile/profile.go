// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

type nameInput struct {
	FullName string `validate:"required,max=100" label:"Name"`
}

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM

	FullName string
	Email    string
	Since    string

	Saved  bool
	Errors []inputval.FieldError
}

// ServeProfile renders the caller's name and email.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "User not found.", "/")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "Unable to load your profile.", "/")
		return
	}

	data := newData(r, user)
	data.Saved = query.Get(r, "saved") == "1"
	templates.Render(w, r, "profile", data)
}

// HandleUpdateName sets the caller's display name.
func (h *Handler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	in := nameInput{FullName: strings.TrimSpace(r.FormValue("full_name"))}
	if res := inputval.Validate(in); res.HasErrors() {
		user, err := h.Users.GetByID(ctx, uid)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load profile failed", err, "Unable to load your profile.", "/")
			return
		}
		data := newData(r, user)
		data.FullName = in.FullName
		data.Errors = res.Errors
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "profile", data)
		return
	}

	if err := h.Users.UpdateName(ctx, uid, in.FullName); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.NotFound(w, r, "User not found.", "/")
			return
		}
		h.ErrLog.LogServerError(w, r, "update name failed", err, "Unable to save your name.", "/profile")
		return
	}

	http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
}

func newData(r *http.Request, u models.User) profileData {
	return profileData{
		BaseVM:   viewdata.NewBaseVM(r, "Profile", "/"),
		FullName: u.FullName,
		Email:    u.Email,
		Since:    u.CreatedAt.Format("January 2006"),
	}
}
