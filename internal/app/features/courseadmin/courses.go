// internal/app/features/courseadmin/courses.go
package courseadmin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| List                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	courses, err := h.Courses.ListAll(ctx, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list courses failed", err, "Unable to load courses.", ws.BasePath())
		return
	}
	templates.Render(w, r, "courseadmin_list", listData{
		BaseVM:  viewdata.NewBaseVM(r, "Manage courses", ws.BasePath()),
		Base:    base(ws),
		Courses: courses,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create / Edit                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func readCourseForm(r *http.Request) courseInput {
	in := courseInput{
		Slug:        strings.ToLower(strings.TrimSpace(r.FormValue("slug"))),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Status:      strings.TrimSpace(r.FormValue("status")),
	}
	if in.Slug == "" {
		in.Slug = inputval.Slugify(in.Title)
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	return in
}

func (in courseInput) store() coursestore.Input {
	return coursestore.Input{Slug: in.Slug, Title: in.Title, Description: in.Description, Status: in.Status}
}

func (h *Handler) renderCourseForm(w http.ResponseWriter, r *http.Request, status int, data courseFormData) {
	w.WriteHeader(status)
	templates.Render(w, r, "courseadmin_course_form", data)
}

func (h *Handler) ServeNewCourse(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	templates.Render(w, r, "courseadmin_course_form", courseFormData{
		BaseVM: viewdata.NewBaseVM(r, "New course", base(ws)),
		Base:   base(ws),
		Action: base(ws),
		Input:  courseInput{Status: models.StatusDraft},
	})
}

func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}
	in := readCourseForm(r)
	form := courseFormData{
		BaseVM: viewdata.NewBaseVM(r, "New course", base(ws)),
		Base:   base(ws),
		Action: base(ws),
		Input:  in,
	}
	if res := inputval.Validate(in); res.HasErrors() {
		form.Errors = res.Errors
		h.renderCourseForm(w, r, http.StatusBadRequest, form)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, err := h.Courses.Create(ctx, ws.ID, in.store())
	if errors.Is(err, coursestore.ErrDuplicateSlug) {
		form.Errors = []inputval.FieldError{{Field: "Slug", Message: "Another course already uses this slug."}}
		h.renderCourseForm(w, r, http.StatusConflict, form)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create course failed", err, "Unable to save the course.", base(ws))
		return
	}
	http.Redirect(w, r, base(ws)+"/"+course.ID.Hex()+"?saved=1", http.StatusSeeOther)
}

// loadCourse fetches {courseID} in ws, drafts included.
func (h *Handler) loadCourse(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace) (models.Course, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "courseID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Course not found.", base(ws))
		return models.Course{}, false
	}
	c, err := h.Courses.GetByID(ctx, ws.ID, id)
	if errors.Is(err, coursestore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Course not found.", base(ws))
		return models.Course{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "Unable to load the course.", base(ws))
		return models.Course{}, false
	}
	return c, true
}

func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
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
	sessions, err := h.Sessions.ListAll(ctx, ws.ID, course.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list course sessions failed", err, "Unable to load sessions.", base(ws))
		return
	}
	templates.Render(w, r, "courseadmin_course_view", courseViewData{
		BaseVM:    viewdata.NewBaseVM(r, course.Title, base(ws)),
		Base:      base(ws),
		Course:    course,
		Sessions:  sessions,
		PublicURL: ws.BasePath() + "/courses/" + course.Slug,
	})
}

func (h *Handler) ServeEditCourse(w http.ResponseWriter, r *http.Request) {
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
	courseURL := base(ws) + "/" + course.ID.Hex()
	templates.Render(w, r, "courseadmin_course_form", courseFormData{
		BaseVM: viewdata.NewBaseVM(r, "Edit course", courseURL),
		Base:   base(ws),
		Action: courseURL + "/edit",
		IsEdit: true,
		Input: courseInput{
			Slug: course.Slug, Title: course.Title, Description: course.Description, Status: course.Status,
		},
	})
}

func (h *Handler) HandleEditCourse(w http.ResponseWriter, r *http.Request) {
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

	in := readCourseForm(r)
	form := courseFormData{
		BaseVM: viewdata.NewBaseVM(r, "Edit course", courseURL),
		Base:   base(ws),
		Action: courseURL + "/edit",
		IsEdit: true,
		Input:  in,
	}
	if res := inputval.Validate(in); res.HasErrors() {
		form.Errors = res.Errors
		h.renderCourseForm(w, r, http.StatusBadRequest, form)
		return
	}

	err := h.Courses.Update(ctx, ws.ID, course.ID, in.store())
	switch {
	case errors.Is(err, coursestore.ErrDuplicateSlug):
		form.Errors = []inputval.FieldError{{Field: "Slug", Message: "Another course already uses this slug."}}
		h.renderCourseForm(w, r, http.StatusConflict, form)
		return
	case errors.Is(err, coursestore.ErrNotFound):
		h.ErrLog.NotFound(w, r, "Course not found.", base(ws))
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update course failed", err, "Unable to save the course.", courseURL)
		return
	}
	http.Redirect(w, r, courseURL+"?saved=1", http.StatusSeeOther)
}

// HandleDeleteCourse soft-deletes the course. Its sessions and progress
// rows stay in place but are no longer reachable.
func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	course, ok := h.loadCourse(ctx, w, r, ws)
	if !ok {
		return
	}
	if err := h.Courses.SoftDelete(ctx, ws.ID, course.ID, h.now()); err != nil && !errors.Is(err, coursestore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete course failed", err, "Unable to delete the course.", base(ws))
		return
	}
	h.AuditLog.CourseDeleted(ctx, r, ws.ID, g.UserID, course.Slug)

	http.Redirect(w, r, base(ws)+"?saved=1", http.StatusSeeOther)
}
