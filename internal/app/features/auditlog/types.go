// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
)

// listItem represents a single audit event row for display.
type listItem struct {
	Timestamp  time.Time
	Label      string
	ActorName  string // resolved from ActorID
	TargetName string // resolved from UserID
	Success    bool
	Details    map[string]string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Base      string
	Items     []listItem
	EventType string
	Types     []typeOption
	Limit     int
}

type typeOption struct {
	Value string
	Label string
}

// eventLabels names the events a church records. Order is the filter order.
var eventLabels = []typeOption{
	{audit.EventAccessRequested, "Access requested"},
	{audit.EventAccessApproved, "Access approved"},
	{audit.EventAccessDenied, "Access denied"},
	{audit.EventRoleGranted, "Role granted"},
	{audit.EventMemberRemoved, "Member removed"},
	{audit.EventCourseDeleted, "Course deleted"},
}

func labelFor(eventType string) string {
	for _, o := range eventLabels {
		if o.Value == eventType {
			return o.Label
		}
	}
	return eventType
}
