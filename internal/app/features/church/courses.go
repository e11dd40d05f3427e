// internal/app/features/church/courses.go
package church

import (
	"context"
	"errors"
	"net/http"

	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	progressstore "github.com/dalemusser/studyhub/internal/app/store/progress"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/courseprogress"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /{churchslug}                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeHome(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromRequest(r)
	if ws == nil {
		h.ErrLog.LogServerError(w, r, "church: no workspace in context", nil, "", "/")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	courses, err := h.Courses.ListPublished(ctx, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list courses failed", err, "Unable to load courses.", "/")
		return
	}

	data := homeData{
		BaseVM:  viewdata.NewBaseVM(r, ws.Name, "/"),
		Courses: courses,
	}
	if caller, userID, ok := authz.UserCtx(r); ok {
		role, member, err := h.Authz.Role(ctx, caller, ws.ID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "membership lookup failed", err, "Unable to load this church.", "/")
			return
		}
		if member {
			data.Member = true
			data.Role = role
			data.CanManage = authz.Grant{Role: role}.In(authz.CourseEditor)
			data.CanAdminister = authz.Grant{Role: role}.In(authz.AdminOnly)
		} else if pending, err := h.Requests.HasPending(ctx, ws.ID, userID); err == nil {
			data.Pending = pending
		} else {
			h.Log.Warn("pending access request lookup failed", zap.Error(err))
		}
	}

	templates.Render(w, r, "church_home", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Course                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// loadCourse resolves {courseSlug} to a published course, rendering 404
// for drafts, deleted courses and other churches' slugs.
func (h *Handler) loadCourse(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace) (models.Course, bool) {
	c, err := h.Courses.GetBySlug(ctx, ws.ID, chi.URLParam(r, "courseSlug"), true)
	if errors.Is(err, coursestore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Course not found.", ws.BasePath())
		return models.Course{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "Unable to load the course.", ws.BasePath())
		return models.Course{}, false
	}
	return c, true
}

func courseURL(ws *models.Workspace, c models.Course) string {
	return ws.BasePath() + "/courses/" + c.Slug
}

func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	sessions, err := h.Sessions.ListPublished(ctx, ws.ID, course.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list course sessions failed", err, "Unable to load the course.", ws.BasePath())
		return
	}

	data := courseData{
		BaseVM: viewdata.NewBaseVM(r, course.Title, ws.BasePath()),
		Course: course,
	}

	var rows []models.SessionProgress
	if _, userID, signedIn := authz.UserCtx(r); signedIn {
		data.Tracked = true
		if data.Enrolled, err = h.Enrollments.IsEnrolled(ctx, course.ID, userID); err != nil {
			h.ErrLog.LogServerError(w, r, "enrollment lookup failed", err, "Unable to load the course.", ws.BasePath())
			return
		}
		if rows, err = h.Progress.ListForCourse(ctx, userID, course.ID); err != nil {
			h.ErrLog.LogServerError(w, r, "progress lookup failed", err, "Unable to load the course.", ws.BasePath())
			return
		}
		data.Percent = courseprogress.Percent(sessions, rows)
	}
	data.Items = courseprogress.Items(sessions, rows)
	if id, ok := courseprogress.Resume(sessions, rows); ok {
		data.ResumeID = id.Hex()
	}

	templates.Render(w, r, "church_course", data)
}

// HandleEnroll enrolls the caller as a participant. Enrolling twice is a
// no-op.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromRequest(r)
	_, userID, signedIn := authz.UserCtx(r)
	if !signedIn {
		h.ErrLog.Deny(w, r, authz.ErrUnauthenticated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	if err := h.Enrollments.Enroll(ctx, course, userID, "", h.now()); err != nil {
		h.ErrLog.LogServerError(w, r, "enroll failed", err, "Unable to enroll in the course.", courseURL(ws, course))
		return
	}
	http.Redirect(w, r, courseURL(ws, course)+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) loadSession(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace, course models.Course) (models.CourseSession, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Session not found.", courseURL(ws, course))
		return models.CourseSession{}, false
	}
	s, err := h.Sessions.Get(ctx, ws.ID, course.ID, id, true)
	if errors.Is(err, coursesessionstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Session not found.", courseURL(ws, course))
		return models.CourseSession{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course session failed", err, "Unable to load the session.", courseURL(ws, course))
		return models.CourseSession{}, false
	}
	return s, true
}

func key(course models.Course, s models.CourseSession, userID primitive.ObjectID) progressstore.Key {
	return progressstore.Key{
		WorkspaceID: course.WorkspaceID,
		CourseID:    course.ID,
		SessionID:   s.ID,
		UserID:      userID,
	}
}

// ServeSession shows one session and records the view for signed-in
// callers. A failed touch is logged, not shown.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	session, ok := h.loadSession(ctx, w, r, ws, course)
	if !ok {
		return
	}

	data := sessionData{
		BaseVM:    viewdata.NewBaseVM(r, session.Title, courseURL(ws, course)),
		Course:    course,
		Session:   session,
		CourseURL: courseURL(ws, course),
	}

	if _, userID, signedIn := authz.UserCtx(r); signedIn {
		data.Tracked = true
		k := key(course, session, userID)
		if err := h.Progress.Touch(ctx, k, h.now()); err != nil {
			h.Log.Warn("progress touch failed", zap.String("session_id", session.ID.Hex()), zap.Error(err))
		}
		row, err := h.Progress.Get(ctx, k)
		if err != nil {
			h.Log.Warn("progress lookup failed", zap.String("session_id", session.ID.Hex()), zap.Error(err))
		}
		data.State = courseprogress.StateOf(row)
	}

	if siblings, err := h.Sessions.ListPublished(ctx, ws.ID, course.ID); err == nil {
		data.PrevID, data.NextID = neighbors(siblings, session.ID)
	}

	templates.Render(w, r, "church_session", data)
}

// neighbors returns the ids before and after id in sessions.
func neighbors(sessions []models.CourseSession, id primitive.ObjectID) (prev, next string) {
	for i, s := range sessions {
		if s.ID != id {
			continue
		}
		if i > 0 {
			prev = sessions[i-1].ID.Hex()
		}
		if i+1 < len(sessions) {
			next = sessions[i+1].ID.Hex()
		}
		break
	}
	return prev, next
}

// HandleComplete toggles completion. An explicit completed=true|false form
// value sets the state instead of flipping it.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ws := workspace.FromRequest(r)
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Deny(w, r, authz.ErrUnauthenticated)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", ws.BasePath())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	session, ok := h.loadSession(ctx, w, r, ws, course)
	if !ok {
		return
	}
	k := key(course, session, userID)
	sessionURL := courseURL(ws, course) + "/sessions/" + session.ID.Hex()

	var completed bool
	switch r.PostFormValue("completed") {
	case "true":
		completed = true
	case "false":
		completed = false
	default:
		row, err := h.Progress.Get(ctx, k)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "progress lookup failed", err, "Unable to update progress.", sessionURL)
			return
		}
		completed = courseprogress.StateOf(row) != courseprogress.Completed
	}

	if err := h.Progress.SetCompleted(ctx, k, completed, h.now()); err != nil {
		h.ErrLog.LogServerError(w, r, "set completed failed", err, "Unable to update progress.", sessionURL)
		return
	}
	h.Metrics.IncCompletion("course", completed)

	http.Redirect(w, r, sessionURL+"?saved=1", http.StatusSeeOther)
}
