// internal/app/features/members/list.go
package members

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errorMessages = map[string]string{
	"last-owner": "A church must keep at least one owner.",
}

// rank orders roles most privileged first.
func rank(r models.Role) int {
	if i := slices.Index(models.AllRoles, r); i >= 0 {
		return i
	}
	return len(models.AllRoles)
}

// matches reports whether u fits the search q: a folded substring of the
// name or a prefix of the email.
func matches(u models.User, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(text.Fold(u.FullName), text.Fold(q)) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(u.Email), strings.ToLower(q))
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ws, g, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	q := strings.TrimSpace(query.Get(r, "q"))
	roleFilter, _ := models.ParseRole(query.Get(r, "role"))

	ms, err := h.Memberships.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list memberships failed", err, "Unable to load members.", ws.BasePath())
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load member users failed", err, "Unable to load members.", ws.BasePath())
		return
	}

	rows := make([]memberRow, 0, len(ms))
	for _, m := range ms {
		u, found := users[m.UserID]
		if !found {
			continue
		}
		if roleFilter != "" && m.Role != roleFilter {
			continue
		}
		if !matches(u, q) {
			continue
		}
		rows = append(rows, memberRow{
			UserID:   m.UserID.Hex(),
			Name:     u.DisplayName(),
			Email:    u.Email,
			Role:     m.Role,
			Joined:   m.CreatedAt.Format("2006-01-02"),
			IsCaller: m.UserID == g.UserID,
			Locked:   m.Role == models.RoleOwner && g.Role != models.RoleOwner,
		})
	}
	slices.SortStableFunc(rows, func(a, b memberRow) int {
		if d := rank(a.Role) - rank(b.Role); d != 0 {
			return d
		}
		return strings.Compare(text.Fold(a.Name), text.Fold(b.Name))
	})

	templates.Render(w, r, "members_list", listData{
		BaseVM:      viewdata.NewBaseVM(r, "Members", ws.BasePath()),
		Base:        base(ws),
		SearchQuery: q,
		RoleFilter:  string(roleFilter),
		Roles:       grantable(g.Role),
		Rows:        rows,
		Total:       len(ms),
		Error:       errorMessages[query.Get(r, "error")],
	})
}
