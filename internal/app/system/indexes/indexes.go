// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from the EnsureSchema hook and by `studyhubctl indexes`.
Each collection's set is reconciled idempotently. Problems are aggregated so
every bad collection shows up in one startup error.

The unique indexes here are the only deduplication the app relies on:
memberships, enrollments, progress rows and pending access requests.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range collections() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func named(name string) *options.IndexOptions {
	return options.Index().SetName(name)
}

func collections() []indexSet {
	notDeleted := bson.D{{Key: "deleted_at", Value: bson.D{{Key: "$exists", Value: false}}}}
	return []indexSet{
		{"users", []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: named("uniq_users_email").SetUnique(true)},
		}},
		{"workspaces", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: named("uniq_workspaces_slug").SetUnique(true).SetSparse(true),
			},
			{
				Keys: bson.D{{Key: "slug", Value: 1}},
				// Serves the case-insensitive fallback lookup.
				Options: named("idx_workspaces_slug_ci").SetCollation(&options.Collation{Locale: "en", Strength: 2}),
			},
			{
				Keys: bson.D{{Key: "owner_id", Value: 1}},
				Options: named("uniq_workspaces_personal_owner").SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "kind", Value: "personal"}}),
			},
		}},
		{"memberships", []mongo.IndexModel{
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: named("uniq_membership_ws_user").SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: named("idx_membership_user")},
		}},
		{"access_requests", []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: named("uniq_access_pending_ws_user").SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
			},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}}, Options: named("idx_access_ws_status_created")},
		}},
		{"courses", []mongo.IndexModel{
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "slug", Value: 1}}, Options: named("uniq_courses_ws_slug").SetUnique(true)},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "status", Value: 1}, {Key: "title", Value: 1}}, Options: named("idx_courses_ws_status_title").SetPartialFilterExpression(notDeleted)},
		}},
		{"course_sessions", []mongo.IndexModel{
			{Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "sort_order", Value: 1}}, Options: named("idx_course_sessions_course_order")},
		}},
		{"enrollments", []mongo.IndexModel{
			{Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: named("uniq_enrollments_course_user").SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: named("idx_enrollments_user")},
		}},
		{"session_progress", []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}}, Options: named("uniq_progress_user_session").SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}}, Options: named("idx_progress_user_course")},
		}},
		{"study_plans", []mongo.IndexModel{
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "updated_at", Value: -1}}, Options: named("idx_study_plans_ws_updated")},
		}},
		{"study_sessions", []mongo.IndexModel{
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "plan_id", Value: 1}, {Key: "session_date", Value: -1}}, Options: named("idx_study_sessions_ws_plan_date")},
		}},
		{"email_verifications", []mongo.IndexModel{
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: named("uniq_email_verifications_token").SetUnique(true)},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: named("ttl_email_verifications_expires").SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: named("idx_email_verifications_user")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: named("idx_email_verifications_email")},
		}},
		{"audit_events", []mongo.IndexModel{
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: named("idx_audit_ws_created")},
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile one collection                                                   */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  bool   `bson:"unique"`
	Sparse  bool   `bson:"sparse"`
	Partial bson.D `bson:"partialFilterExpression"`
	TTL     *int32 `bson:"expireAfterSeconds"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// matches reports whether ex already satisfies the desired options.
func matches(ex existingIndex, o *options.IndexOptions) bool {
	want := func(b *bool) bool { return b != nil && *b }
	if ex.Unique != want(o.Unique) || ex.Sparse != want(o.Sparse) {
		return false
	}
	var partial bson.D
	if o.PartialFilterExpression != nil {
		partial, _ = o.PartialFilterExpression.(bson.D)
	}
	if fmt.Sprint(partial) != fmt.Sprint(ex.Partial) {
		return false
	}
	if (o.ExpireAfterSeconds == nil) != (ex.TTL == nil) {
		return false
	}
	return true
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := map[string]existingIndex{} // name -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[idx.Name] = idx
	}
	_ = cur.Close(ctx)

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[name]; ok {
			if keySig(ex.Key) == sig && matches(ex, m.Options) {
				continue
			}
			zap.L().Info("index definition changed; recreating",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig))
			if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop failed: %v", name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index (duplicates present on %s)", name, sig))
				continue
			}
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		zap.L().Info("index created",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
