// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studyhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("workspaces", workspacesSchema())
	ensure("users", usersSchema())
	ensure("memberships", membershipsSchema())
	ensure("courses", coursesSchema())
	ensure("course_sessions", courseSessionsSchema())
	ensure("enrollments", enrollmentsSchema())
	ensure("session_progress", progressSchema())
	ensure("access_requests", accessRequestsSchema())
	ensure("study_plans", studyPlansSchema())
	ensure("study_sessions", studySessionsSchema())

	// No validators; created so indexes and transactions find them.
	ensure("email_verifications", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank  = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	objectID  = bson.M{"bsonType": "objectId"}
	date      = bson.M{"bsonType": "date"}
	nullDate  = bson.M{"bsonType": bson.A{"date", "null"}}
	str       = bson.M{"bsonType": "string"}
	pubStatus = bson.M{"enum": bson.A{models.StatusDraft, models.StatusPublished}}
)

func roleEnum() bson.M {
	roles := bson.A{}
	for _, r := range models.AllRoles {
		roles = append(roles, string(r))
	}
	return bson.M{"enum": roles}
}

func schema(required bson.A, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func workspacesSchema() bson.M {
	return schema(bson.A{"name", "kind"}, bson.M{
		"slug":       str,
		"name":       str,
		"kind":       bson.M{"enum": bson.A{models.WorkspaceChurch, models.WorkspacePersonal}},
		"owner_id":   objectID,
		"created_at": date,
	})
}

// Magic-link sign-up creates users before they give a name, so only the
// email is required.
func usersSchema() bson.M {
	return schema(bson.A{"email"}, bson.M{
		"full_name":    str,
		"full_name_ci": str,
		"email":        nonBlank,
		"status":       bson.M{"enum": bson.A{"active", "disabled"}},
	})
}

func membershipsSchema() bson.M {
	return schema(bson.A{"workspace_id", "user_id", "role"}, bson.M{
		"workspace_id": objectID,
		"user_id":      objectID,
		"role":         roleEnum(),
	})
}

func coursesSchema() bson.M {
	return schema(bson.A{"workspace_id", "slug", "title", "status"}, bson.M{
		"workspace_id": objectID,
		"slug":         nonBlank,
		"title":        nonBlank,
		"status":       pubStatus,
		"deleted_at":   date,
	})
}

func courseSessionsSchema() bson.M {
	return schema(bson.A{"workspace_id", "course_id", "title", "status", "sort_order"}, bson.M{
		"workspace_id": objectID,
		"course_id":    objectID,
		"title":        nonBlank,
		"status":       pubStatus,
		"sort_order":   bson.M{"bsonType": bson.A{"int", "long"}},
		"deleted_at":   date,
	})
}

func enrollmentsSchema() bson.M {
	return schema(bson.A{"workspace_id", "course_id", "user_id"}, bson.M{
		"workspace_id": objectID,
		"course_id":    objectID,
		"user_id":      objectID,
		"role":         str,
	})
}

func progressSchema() bson.M {
	return schema(bson.A{"workspace_id", "session_id", "user_id"}, bson.M{
		"workspace_id":   objectID,
		"course_id":      objectID,
		"session_id":     objectID,
		"user_id":        objectID,
		"last_viewed_at": date,
		"completed_at":   nullDate,
	})
}

func accessRequestsSchema() bson.M {
	return schema(bson.A{"workspace_id", "user_id", "requested_role", "status"}, bson.M{
		"workspace_id":   objectID,
		"user_id":        objectID,
		"requested_role": roleEnum(),
		"status":         bson.M{"enum": bson.A{models.AccessPending, models.AccessApproved, models.AccessDenied}},
		"decided_at":     date,
		"decided_by":     objectID,
	})
}

func studyPlansSchema() bson.M {
	return schema(bson.A{"workspace_id", "title"}, bson.M{
		"workspace_id": objectID,
		"title":        str,
		"tags":         bson.M{"bsonType": bson.A{"array", "null"}},
	})
}

func studySessionsSchema() bson.M {
	return schema(bson.A{"workspace_id", "plan_id", "track", "mode", "status"}, bson.M{
		"workspace_id": objectID,
		"plan_id":      objectID,
		"track":        bson.M{"enum": bson.A{models.TrackBeginner, models.TrackIntermediate, models.TrackAdvanced}},
		"mode":         bson.M{"enum": bson.A{models.ModeGuided, models.ModeFree}},
		"status":       bson.M{"enum": bson.A{models.SessionDraft, models.SessionComplete}},
		"responses":    bson.M{"bsonType": bson.A{"object", "null"}},
		"completed_at": nullDate,
	})
}
