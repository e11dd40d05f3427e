// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listLimit caps how far back the page reaches.
const listLimit = 200

// ServeList handles GET /{churchslug}/manage/audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.access(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	eventType := strings.TrimSpace(query.Get(r, "event_type"))

	events, err := h.Events.ListForWorkspace(ctx, ws.ID, listLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list audit events failed", err, "Unable to load the audit log.", ws.BasePath())
		return
	}
	if eventType != "" {
		kept := events[:0]
		for _, e := range events {
			if e.EventType == eventType {
				kept = append(kept, e)
			}
		}
		events = kept
	}

	names, err := h.names(ctx, events)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load audit users failed", err, "Unable to load the audit log.", ws.BasePath())
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			Timestamp:  e.CreatedAt,
			Label:      labelFor(e.EventType),
			ActorName:  nameOf(names, e.ActorID),
			TargetName: nameOf(names, e.UserID),
			Success:    e.Success,
			Details:    e.Details,
		})
	}

	templates.Render(w, r, "auditlog_list", listData{
		BaseVM:    viewdata.NewBaseVM(r, "Audit log", ws.BasePath()),
		Base:      ws.BasePath() + "/manage/audit",
		Items:     items,
		EventType: eventType,
		Types:     eventLabels,
		Limit:     listLimit,
	})
}

// names resolves every actor and target in events to a display name.
func (h *Handler) names(ctx context.Context, events []audit.Event) (map[primitive.ObjectID]string, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, u := range users {
		out[id] = u.DisplayName()
	}
	return out, nil
}

func nameOf(names map[primitive.ObjectID]string, id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	if n, ok := names[*id]; ok {
		return n
	}
	return "(deleted user)"
}
