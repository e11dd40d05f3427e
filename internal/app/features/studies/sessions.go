// internal/app/features/studies/sessions.go
package studies

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// responsePrefix namespaces answer fields in the responses form.
const responsePrefix = "resp_"

func planURL(ws *models.Workspace, plan models.StudyPlan) string {
	return base(ws) + "/" + plan.ID.Hex()
}

func sessionURL(ws *models.Workspace, plan models.StudyPlan, id primitive.ObjectID) string {
	return planURL(ws, plan) + "/sessions/" + id.Hex()
}

// loadSession fetches {sessionID}, which must belong to plan.
func (h *Handler) loadSession(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *models.Workspace, plan models.StudyPlan) (models.StudySession, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Study session not found.", planURL(ws, plan))
		return models.StudySession{}, false
	}
	ss, err := h.Sessions.Get(ctx, ws.ID, id)
	if errors.Is(err, studysessionstore.ErrNotFound) || (err == nil && ss.PlanID != plan.ID) {
		h.ErrLog.NotFound(w, r, "Study session not found.", planURL(ws, plan))
		return models.StudySession{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load study session failed", err, "Unable to load the study session.", planURL(ws, plan))
		return models.StudySession{}, false
	}
	return ss, true
}

func readSessionForm(r *http.Request) sessionInput {
	return sessionInput{
		SessionDate: strings.TrimSpace(r.FormValue("session_date")),
		Passage:     strings.TrimSpace(r.FormValue("passage")),
		PassageText: strings.TrimSpace(r.FormValue("passage_text")),
		Track:       strings.ToLower(strings.TrimSpace(r.FormValue("track"))),
		Mode:        strings.ToLower(strings.TrimSpace(r.FormValue("mode"))),
		Genre:       strings.TrimSpace(r.FormValue("genre")),
		Status:      strings.ToLower(strings.TrimSpace(r.FormValue("status"))),
	}
}

// parseDate turns a validated yyyy-mm-dd value into a UTC date; blank is nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) sessionForm(r *http.Request, ws *models.Workspace, plan models.StudyPlan, in sessionInput, action string, isEdit bool) sessionFormData {
	title := "New study session"
	back := planURL(ws, plan)
	if isEdit {
		title = "Edit study session"
	}
	return sessionFormData{
		BaseVM:      viewdata.NewBaseVM(r, title, back),
		Base:        base(ws),
		Plan:        plan,
		Action:      action,
		IsEdit:      isEdit,
		SessionDate: in.SessionDate,
		Passage:     in.Passage,
		PassageText: in.PassageText,
		Genre:       in.Genre,
		Tracks:      choices(trackValues, in.Track),
		Modes:       choices(modeValues, in.Mode),
		Statuses:    choices(statusValues, in.Status),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Create                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNewSession(w http.ResponseWriter, r *http.Request) {
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
	in := sessionInput{
		SessionDate: h.now().Format(dateLayout),
		Passage:     plan.Passage,
		Track:       models.TrackBeginner,
		Mode:        models.ModeGuided,
	}
	templates.Render(w, r, "studies_session_form",
		h.sessionForm(r, ws, plan, in, planURL(ws, plan)+"/sessions", false))
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
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

	in := readSessionForm(r)
	if res := inputval.Validate(in); res.HasErrors() {
		data := h.sessionForm(r, ws, plan, in, planURL(ws, plan)+"/sessions", false)
		data.Errors = res.Errors
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "studies_session_form", data)
		return
	}

	now := h.now()
	ss, err := h.Sessions.Create(ctx, plan, studysessionstore.Input{
		SessionDate: parseDate(in.SessionDate),
		Passage:     in.Passage,
		PassageText: in.PassageText,
		Track:       in.Track,
		Mode:        in.Mode,
		Genre:       in.Genre,
	}, now)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create study session failed", err, "Unable to save the study session.", planURL(ws, plan))
		return
	}
	if err := h.Plans.Touch(ctx, ws.ID, plan.ID, now); err != nil {
		h.Log.Warn("touch study plan failed", zap.String("plan_id", plan.ID.Hex()), zap.Error(err))
	}

	http.Redirect(w, r, sessionURL(ws, plan, ss.ID)+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| View                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// responseRows pairs the track's prompts with stored answers and lists any
// other stored keys separately, sorted by key.
func responseRows(ss models.StudySession) (prompts, other []responseRow) {
	known := map[string]bool{}
	for _, f := range models.ResponseFields(ss.Track) {
		known[f.Key] = true
		prompts = append(prompts, responseRow{Key: f.Key, Label: f.Label, Value: ss.Responses[f.Key]})
	}
	for k, v := range ss.Responses {
		if !known[k] {
			other = append(other, responseRow{Key: k, Label: k, Value: v})
		}
	}
	sort.Slice(other, func(i, j int) bool { return other[i].Key < other[j].Key })
	return prompts, other
}

func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
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
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}

	prompts, other := responseRows(ss)
	title := plan.Title
	if ss.Passage != "" {
		title = ss.Passage
	}
	templates.Render(w, r, "studies_session_view", sessionViewData{
		BaseVM:      viewdata.NewBaseVM(r, title, planURL(ws, plan)),
		Base:        base(ws),
		Plan:        plan,
		Session:     toRow(ss),
		PassageText: ss.PassageText,
		Prompts:     prompts,
		Other:       other,
		CanEdit:     g.In(authz.StudyEditor),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Edit metadata                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEditSession(w http.ResponseWriter, r *http.Request) {
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
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}
	row := toRow(ss)
	in := sessionInput{
		SessionDate: row.Date,
		Passage:     ss.Passage,
		PassageText: ss.PassageText,
		Track:       ss.Track,
		Mode:        ss.Mode,
		Genre:       ss.Genre,
		Status:      ss.Status,
	}
	templates.Render(w, r, "studies_session_form",
		h.sessionForm(r, ws, plan, in, sessionURL(ws, plan, ss.ID)+"/edit", true))
}

// metaPatch sets only the fields present in the submitted form.
func metaPatch(r *http.Request, in sessionInput) studysessionstore.MetaPatch {
	var p studysessionstore.MetaPatch
	has := func(k string) bool { _, ok := r.PostForm[k]; return ok }
	if has("session_date") {
		p.SessionDate = models.Set(parseDate(in.SessionDate))
	}
	if has("passage") {
		p.Passage = models.Set(in.Passage)
	}
	if has("passage_text") {
		p.PassageText = models.Set(in.PassageText)
	}
	if has("track") && in.Track != "" {
		p.Track = models.Set(in.Track)
	}
	if has("mode") && in.Mode != "" {
		p.Mode = models.Set(in.Mode)
	}
	if has("genre") {
		p.Genre = models.Set(in.Genre)
	}
	if has("status") && in.Status != "" {
		p.Status = models.Set(in.Status)
	}
	return p
}

func (h *Handler) HandleEditSession(w http.ResponseWriter, r *http.Request) {
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
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}

	in := readSessionForm(r)
	if res := inputval.Validate(in); res.HasErrors() {
		data := h.sessionForm(r, ws, plan, in, sessionURL(ws, plan, ss.ID)+"/edit", true)
		data.Errors = res.Errors
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "studies_session_form", data)
		return
	}

	now := h.now()
	if _, err := h.Sessions.UpdateMeta(ctx, ws.ID, ss.ID, metaPatch(r, in), now); err != nil {
		h.sessionWriteFailed(w, r, ws, plan, err)
		return
	}
	if err := h.Plans.Touch(ctx, ws.ID, plan.ID, now); err != nil {
		h.Log.Warn("touch study plan failed", zap.String("plan_id", plan.ID.Hex()), zap.Error(err))
	}

	http.Redirect(w, r, sessionURL(ws, plan, ss.ID)+"?saved=1", http.StatusSeeOther)
}

// HandleComplete sets the session status from the form (complete or draft).
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := h.access(w, r, authz.StudyEditor)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", base(ws))
		return
	}
	status := strings.ToLower(strings.TrimSpace(r.FormValue("status")))
	if !models.ValidSessionStatus(status) {
		h.ErrLog.LogBadRequest(w, r, "bad session status", nil, "Unknown status.", base(ws))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	plan, ok := h.loadPlan(ctx, w, r, ws)
	if !ok {
		return
	}
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}

	p := studysessionstore.MetaPatch{Status: models.Set(status)}
	if _, err := h.Sessions.UpdateMeta(ctx, ws.ID, ss.ID, p, h.now()); err != nil {
		h.sessionWriteFailed(w, r, ws, plan, err)
		return
	}
	h.Metrics.IncCompletion("study", status == models.SessionComplete)

	http.Redirect(w, r, sessionURL(ws, plan, ss.ID)+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Responses                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// maxResponseLen bounds one answer.
const maxResponseLen = 20000

// HandleResponses merges submitted answers into the stored ones. Fields
// that were not submitted keep their stored values.
func (h *Handler) HandleResponses(w http.ResponseWriter, r *http.Request) {
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
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}

	patch := map[string]string{}
	for k, vals := range r.PostForm {
		key := strings.TrimPrefix(k, responsePrefix)
		if key == k || key == "" || len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[0])
		if len(v) > maxResponseLen {
			h.ErrLog.LogBadRequest(w, r, "response too long", nil, "One of your answers is too long.", sessionURL(ws, plan, ss.ID))
			return
		}
		patch[key] = v
	}

	if len(patch) > 0 {
		now := h.now()
		if _, err := h.Sessions.MergeResponses(ctx, ws.ID, ss.ID, patch, now); err != nil {
			h.sessionWriteFailed(w, r, ws, plan, err)
			return
		}
		if err := h.Plans.Touch(ctx, ws.ID, plan.ID, now); err != nil {
			h.Log.Warn("touch study plan failed", zap.String("plan_id", plan.ID.Hex()), zap.Error(err))
		}
	}

	http.Redirect(w, r, sessionURL(ws, plan, ss.ID)+"?saved=1", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Delete                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
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
	ss, ok := h.loadSession(ctx, w, r, ws, plan)
	if !ok {
		return
	}
	if err := h.Sessions.Delete(ctx, ws.ID, ss.ID); err != nil && !errors.Is(err, studysessionstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete study session failed", err, "Unable to delete the session.", planURL(ws, plan))
		return
	}

	http.Redirect(w, r, planURL(ws, plan)+"?saved=1", http.StatusSeeOther)
}

func (h *Handler) sessionWriteFailed(w http.ResponseWriter, r *http.Request, ws *models.Workspace, plan models.StudyPlan, err error) {
	if errors.Is(err, studysessionstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Study session not found.", planURL(ws, plan))
		return
	}
	h.ErrLog.LogServerError(w, r, "save study session failed", err, "Unable to save the study session.", planURL(ws, plan))
}
