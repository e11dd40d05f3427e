// internal/app/features/studies/plans.go
package studies

import (
	"context"
	"errors"
	"net/http"
	"strings"

	studyplanstore "github.com/dalemusser/studyhub/internal/app/store/studyplans"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – plan list                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r, authz.AnyMember)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tag := query.Get(r, "tag")
	plans, err := h.Plans.List(ctx, ws.ID, tag)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list study plans failed", err, "Unable to load study plans.", "/")
		return
	}

	templates.Render(w, r, "studies_list", listData{
		BaseVM:  viewdata.NewBaseVM(r, "Study plans", "/"),
		Base:    base(ws),
		Tag:     strings.ToLower(strings.TrimSpace(tag)),
		Plans:   plans,
		CanEdit: g.In(authz.StudyEditor),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNewPlan(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	templates.Render(w, r, "studies_plan_form", planFormData{
		BaseVM: viewdata.NewBaseVM(r, "New study plan", base(ws)),
		Base:   base(ws),
		Action: base(ws),
	})
}

func readPlanForm(r *http.Request) planInput {
	return planInput{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Book:    strings.TrimSpace(r.FormValue("book")),
		Passage: strings.TrimSpace(r.FormValue("passage")),
		Tags:    studyplanstore.ParseTags(r.FormValue("tags")),
	}
}

func (h *Handler) renderPlanForm(w http.ResponseWriter, r *http.Request, ws *models.Workspace, in planInput, action string, isEdit bool, res inputval.Result) {
	title := "New study plan"
	if isEdit {
		title = "Edit study plan"
	}
	w.WriteHeader(http.StatusBadRequest)
	templates.Render(w, r, "studies_plan_form", planFormData{
		BaseVM:    viewdata.NewBaseVM(r, title, base(ws)),
		Base:      base(ws),
		Action:    action,
		IsEdit:    isEdit,
		PlanTitle: in.Title,
		Book:      in.Book,
		Passage:   in.Passage,
		Tags:      strings.Join(in.Tags, ", "),
		Errors:    res.Errors,
	})
}

func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}

	in := readPlanForm(r)
	if res := inputval.Validate(in); res.HasErrors() {
		h.renderPlanForm(w, r, ws, in, base(ws), false, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	plan, err := h.Plans.Create(ctx, ws.ID, studyplanstore.Input{
		Title: in.Title, Book: in.Book, Passage: in.Passage, Tags: in.Tags,
	}, h.now())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create study plan failed", err, "Unable to save the study plan.", base(ws))
		return
	}

	http.Redirect(w, r, base(ws)+"/"+plan.ID.Hex()+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| View                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// loadPlan fetches {planID} inside ws, rendering 404 when it is absent.
func (h *Handler) loadPlan(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace) (models.StudyPlan, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "planID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Study plan not found.", base(ws))
		return models.StudyPlan{}, false
	}
	plan, err := h.Plans.Get(ctx, ws.ID, id)
	if errors.Is(err, studyplanstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Study plan not found.", base(ws))
		return models.StudyPlan{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load study plan failed", err, "Unable to load the study plan.", base(ws))
		return models.StudyPlan{}, false
	}
	return plan, true
}

func (h *Handler) ServePlan(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r, authz.AnyMember)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	plan, ok := h.loadPlan(ctx, w, r, ws)
	if !ok {
		return
	}
	sessions, err := h.Sessions.ListByPlan(ctx, ws.ID, plan.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list study sessions failed", err, "Unable to load sessions.", base(ws))
		return
	}
	rows := make([]sessionRow, 0, len(sessions))
	for _, ss := range sessions {
		rows = append(rows, toRow(ss))
	}

	templates.Render(w, r, "studies_plan_view", planViewData{
		BaseVM:   viewdata.NewBaseVM(r, plan.Title, base(ws)),
		Base:     base(ws),
		Plan:     plan,
		Sessions: rows,
		CanEdit:  g.In(authz.StudyEditor),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Edit / Delete                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEditPlan(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	plan, ok := h.loadPlan(ctx, w, r, ws)
	if !ok {
		return
	}
	planURL := base(ws) + "/" + plan.ID.Hex()
	templates.Render(w, r, "studies_plan_form", planFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Edit study plan", planURL),
		Base:      base(ws),
		Action:    planURL + "/edit",
		IsEdit:    true,
		PlanTitle: plan.Title,
		Book:      plan.Book,
		Passage:   plan.Passage,
		Tags:      strings.Join(plan.Tags, ", "),
	})
}

func (h *Handler) HandleEditPlan(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	plan, ok := h.loadPlan(ctx, w, r, ws)
	if !ok {
		return
	}
	planURL := base(ws) + "/" + plan.ID.Hex()

	in := readPlanForm(r)
	if res := inputval.Validate(in); res.HasErrors() {
		h.renderPlanForm(w, r, ws, in, planURL+"/edit", true, res)
		return
	}

	err := h.Plans.Update(ctx, ws.ID, plan.ID, studyplanstore.Input{
		Title: in.Title, Book: in.Book, Passage: in.Passage, Tags: in.Tags,
	}, h.now())
	if errors.Is(err, studyplanstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Study plan not found.", base(ws))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update study plan failed", err, "Unable to save the study plan.", planURL)
		return
	}

	http.Redirect(w, r, planURL+"?saved=1", http.StatusSeeOther)
}

// HandleDeletePlan hard-deletes the plan and all of its sessions.
func (h *Handler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	plan, ok := h.loadPlan(ctx, w, r, ws)
	if !ok {
		return
	}
	if err := h.Plans.Delete(ctx, ws.ID, plan.ID); err != nil && !errors.Is(err, studyplanstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete study plan failed", err, "Unable to delete the study plan.", base(ws))
		return
	}

	http.Redirect(w, r, base(ws)+"?saved=1", http.StatusSeeOther)
}
