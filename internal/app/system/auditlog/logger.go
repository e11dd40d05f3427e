// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes per category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config selects where each category of events goes.
type Config struct {
	Auth  string
	Admin string
}

// Logger records security-relevant events. A nil *Logger is a no-op so
// handlers under test can leave it unset.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) mode(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	}
	return ModeAll
}

// Log writes event according to its category's mode.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	mode := l.mode(event.Category)
	if mode == ModeOff {
		return
	}
	if mode == ModeAll || mode == ModeLog || mode == "" {
		l.logToZap(event)
	}
	if (mode == ModeAll || mode == ModeDB || mode == "") && l.store != nil {
		if err := l.store.Insert(ctx, event); err != nil {
			l.zapLog.Error("audit insert failed",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("request_id", event.RequestID),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// base fills the request-derived fields. Requests that did not pass through
// chi's RequestID middleware get a fresh uuid.
func base(r *http.Request, category, eventType string) audit.Event {
	rid := middleware.GetReqID(r.Context())
	if rid == "" {
		rid = uuid.NewString()
	}
	return audit.Event{
		Category:  category,
		EventType: eventType,
		RequestID: rid,
		IP:        ratelimit.ClientIP(r),
		Success:   true,
	}
}

func oid(id primitive.ObjectID) *primitive.ObjectID { return &id }

/*─────────────────────────────────────────────────────────────────────────────*
| Auth events                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (l *Logger) MagicLinkSent(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := base(r, audit.CategoryAuth, audit.EventMagicLinkSent)
	e.UserID = oid(userID)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) MagicLinkUsed(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventMagicLinkUsed)
	e.UserID = oid(userID)
	l.Log(ctx, e)
}

func (l *Logger) MagicLinkInvalid(ctx context.Context, r *http.Request, reason string) {
	e := base(r, audit.CategoryAuth, audit.EventMagicLinkInvalid)
	e.Success = false
	e.FailureReason = reason
	l.Log(ctx, e)
}

func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginRateLimited)
	e.Success = false
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	e := base(r, audit.CategoryAuth, audit.EventLogout)
	if id, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		e.UserID = &id
	}
	l.Log(ctx, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin events                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (l *Logger) AccessRequested(ctx context.Context, r *http.Request, wsID, userID primitive.ObjectID, role string) {
	e := base(r, audit.CategoryAdmin, audit.EventAccessRequested)
	e.WorkspaceID = oid(wsID)
	e.UserID = oid(userID)
	e.ActorID = oid(userID)
	e.Details = map[string]string{"requested_role": role}
	l.Log(ctx, e)
}

// AccessDecided records an approval or denial by actorID.
func (l *Logger) AccessDecided(ctx context.Context, r *http.Request, wsID, actorID, userID primitive.ObjectID, approved bool, role string) {
	eventType := audit.EventAccessDenied
	if approved {
		eventType = audit.EventAccessApproved
	}
	e := base(r, audit.CategoryAdmin, eventType)
	e.WorkspaceID = oid(wsID)
	e.UserID = oid(userID)
	e.ActorID = oid(actorID)
	e.Details = map[string]string{"requested_role": role}
	l.Log(ctx, e)
}

func (l *Logger) RoleGranted(ctx context.Context, r *http.Request, wsID, actorID, userID primitive.ObjectID, role string) {
	e := base(r, audit.CategoryAdmin, audit.EventRoleGranted)
	e.WorkspaceID = oid(wsID)
	e.UserID = oid(userID)
	e.ActorID = oid(actorID)
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}

func (l *Logger) CourseDeleted(ctx context.Context, r *http.Request, wsID, actorID primitive.ObjectID, courseSlug string) {
	e := base(r, audit.CategoryAdmin, audit.EventCourseDeleted)
	e.WorkspaceID = oid(wsID)
	e.ActorID = oid(actorID)
	e.Details = map[string]string{"course": courseSlug}
	l.Log(ctx, e)
}

func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, wsID, actorID, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAdmin, audit.EventMemberRemoved)
	e.WorkspaceID = oid(wsID)
	e.UserID = oid(userID)
	e.ActorID = oid(actorID)
	l.Log(ctx, e)
}
