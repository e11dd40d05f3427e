package home

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	enrollmentstore "github.com/dalemusser/studyhub/internal/app/store/enrollments"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	workspacestore "github.com/dalemusser/studyhub/internal/app/store/workspaces"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	Workspaces  *workspacestore.Store
	Memberships *membershipstore.Store
	Enrollments *enrollmentstore.Store
	Courses     *coursestore.Store
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		Workspaces:  workspacestore.New(db),
		Memberships: membershipstore.New(db),
		Enrollments: enrollmentstore.New(db),
		Courses:     coursestore.New(db),
	}
}

type churchItem struct {
	Name string
	Path string
	Role models.Role // empty when the caller is not a member
}

type courseItem struct {
	Title      string
	ChurchName string
	Path       string
}

type homeData struct {
	viewdata.BaseVM
	MyChurches    []churchItem
	OtherChurches []churchItem
	MyCourses     []courseItem
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot lists churches for everyone and, for signed-in callers, their
// memberships and enrolled courses.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	churches, err := h.Workspaces.ListChurches(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list churches failed", err, "Unable to load churches.", "/")
		return
	}

	data := homeData{BaseVM: viewdata.NewBaseVM(r, "Welcome", "/")}

	roles := map[primitive.ObjectID]models.Role{}
	if _, userID, ok := authz.UserCtx(r); ok {
		mems, err := h.Memberships.ListByUser(ctx, userID)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list memberships failed", err, "Unable to load your churches.", "/")
			return
		}
		for _, m := range mems {
			roles[m.WorkspaceID] = m.Role
		}

		data.MyCourses, err = h.myCourses(ctx, userID, churches)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "list enrollments failed", err, "Unable to load your courses.", "/")
			return
		}
	}

	for _, ws := range churches {
		item := churchItem{Name: ws.Name, Path: ws.BasePath(), Role: roles[ws.ID]}
		if item.Role != "" {
			data.MyChurches = append(data.MyChurches, item)
		} else {
			data.OtherChurches = append(data.OtherChurches, item)
		}
	}

	templates.Render(w, r, "home", data)
}

func (h *Handler) myCourses(ctx context.Context, userID primitive.ObjectID, churches []models.Workspace) ([]courseItem, error) {
	enrolled, err := h.Enrollments.ListByUser(ctx, userID, primitive.NilObjectID)
	if err != nil || len(enrolled) == 0 {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(enrolled))
	for _, e := range enrolled {
		ids = append(ids, e.CourseID)
	}
	courses, err := h.Courses.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Workspace, len(churches))
	for _, ws := range churches {
		byID[ws.ID] = ws
	}
	out := make([]courseItem, 0, len(courses))
	for _, c := range courses {
		ws, ok := byID[c.WorkspaceID]
		if !ok || c.Status != models.StatusPublished {
			continue
		}
		out = append(out, courseItem{
			Title:      c.Title,
			ChurchName: ws.Name,
			Path:       ws.BasePath() + "/courses/" + c.Slug,
		})
	}
	return out, nil
}
