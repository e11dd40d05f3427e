// internal/app/features/courseadmin/sessions.go
package courseadmin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// readSessionForm parses the session form. A blank order keeps fallback.
func readSessionForm(r *http.Request, fallback int) (sessionInput, inputval.Result) {
	in := sessionInput{
		Title:     strings.TrimSpace(r.FormValue("title")),
		Summary:   strings.TrimSpace(r.FormValue("summary")),
		Status:    strings.TrimSpace(r.FormValue("status")),
		Content:   r.FormValue("content"),
		SortOrder: fallback,
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	res := inputval.Validate(in)
	if raw := strings.TrimSpace(r.FormValue("sort_order")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			res.Errors = append(res.Errors, inputval.FieldError{Field: "SortOrder", Message: "Order must be a whole number, 0 or more."})
		} else {
			in.SortOrder = n
		}
	}
	return in, res
}

func (in sessionInput) store() coursesessionstore.Input {
	return coursesessionstore.Input{
		Title: in.Title, Summary: in.Summary, Status: in.Status, SortOrder: in.SortOrder, Content: in.Content,
	}
}

func (h *Handler) ServeNewSession(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	next, err := h.Sessions.NextSortOrder(ctx, ws.ID, course.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "next sort order failed", err, "Unable to prepare the form.", base(ws))
		return
	}
	courseURL := base(ws) + "/" + course.ID.Hex()
	templates.Render(w, r, "courseadmin_session_form", sessionFormData{
		BaseVM:    viewdata.NewBaseVM(r, "New session", courseURL),
		Base:      base(ws),
		CourseURL: courseURL,
		Action:    courseURL + "/sessions",
		Input:     sessionInput{Status: models.StatusDraft, SortOrder: next},
	})
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	courseURL := base(ws) + "/" + course.ID.Hex()

	next, err := h.Sessions.NextSortOrder(ctx, ws.ID, course.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "next sort order failed", err, "Unable to save the session.", courseURL)
		return
	}
	in, res := readSessionForm(r, next)
	if res.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "courseadmin_session_form", sessionFormData{
			BaseVM:    viewdata.NewBaseVM(r, "New session", courseURL),
			Base:      base(ws),
			CourseURL: courseURL,
			Action:    courseURL + "/sessions",
			Input:     in,
			Errors:    res.Errors,
		})
		return
	}

	if _, err := h.Sessions.Create(ctx, course, in.store()); err != nil {
		h.ErrLog.LogServerError(w, r, "create course session failed", err, "Unable to save the session.", courseURL)
		return
	}
	http.Redirect(w, r, courseURL+"?saved=1", http.StatusSeeOther)
}

func (h *Handler) loadSession(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace, course models.Course) (models.CourseSession, bool) {
	courseURL := base(ws) + "/" + course.ID.Hex()
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Session not found.", courseURL)
		return models.CourseSession{}, false
	}
	s, err := h.Sessions.Get(ctx, ws.ID, course.ID, id, false)
	if errors.Is(err, coursesessionstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Session not found.", courseURL)
		return models.CourseSession{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course session failed", err, "Unable to load the session.", courseURL)
		return models.CourseSession{}, false
	}
	return s, true
}

func (h *Handler) ServeEditSession(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	s, ok := h.loadSession(ctx, w, r, ws, course)
	if !ok {
		return
	}
	courseURL := base(ws) + "/" + course.ID.Hex()
	templates.Render(w, r, "courseadmin_session_form", sessionFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Edit session", courseURL),
		Base:      base(ws),
		CourseURL: courseURL,
		Action:    courseURL + "/sessions/" + s.ID.Hex() + "/edit",
		IsEdit:    true,
		Input: sessionInput{
			Title: s.Title, Summary: s.Summary, Status: s.Status, SortOrder: s.SortOrder, Content: s.Content,
		},
	})
}

func (h *Handler) HandleEditSession(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	s, ok := h.loadSession(ctx, w, r, ws, course)
	if !ok {
		return
	}
	courseURL := base(ws) + "/" + course.ID.Hex()
	action := courseURL + "/sessions/" + s.ID.Hex() + "/edit"

	in, res := readSessionForm(r, s.SortOrder)
	if res.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "courseadmin_session_form", sessionFormData{
			BaseVM:    viewdata.NewBaseVM(r, "Edit session", courseURL),
			Base:      base(ws),
			CourseURL: courseURL,
			Action:    action,
			IsEdit:    true,
			Input:     in,
			Errors:    res.Errors,
		})
		return
	}

	err := h.Sessions.Update(ctx, ws.ID, course.ID, s.ID, in.store())
	if errors.Is(err, coursesessionstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Session not found.", courseURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update course session failed", err, "Unable to save the session.", courseURL)
		return
	}
	http.Redirect(w, r, courseURL+"?saved=1", http.StatusSeeOther)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	s, ok := h.loadSession(ctx, w, r, ws, course)
	if !ok {
		return
	}
	courseURL := base(ws) + "/" + course.ID.Hex()
	if err := h.Sessions.SoftDelete(ctx, ws.ID, course.ID, s.ID, h.now()); err != nil && !errors.Is(err, coursesessionstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete course session failed", err, "Unable to delete the session.", courseURL)
		return
	}
	http.Redirect(w, r, courseURL+"?saved=1", http.StatusSeeOther)
}
