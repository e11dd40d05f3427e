package main

import (
	"context"
	"fmt"

	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/studyhub/internal/app/store/workspaces"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newGrantCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "grant CHURCH EMAIL ROLE",
		Short: "Give a user a role in a church, creating the user if needed",
		Long: `Grant sets EMAIL's role in the church with slug CHURCH, replacing any
role they already hold. ROLE is one of owner, admin, instructor, leader
or participant.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, email := args[0], args[1]
			role, ok := models.ParseRole(args[2])
			if !ok {
				return fmt.Errorf("unknown role %q", args[2])
			}

			return flags.connect(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
				ws, err := workspacestore.New(db).LookupSlug(ctx, slug, false)
				if err != nil {
					return err
				}
				if ws == nil {
					return fmt.Errorf("no church with slug %q", slug)
				}
				u, created, err := userstore.New(db).FindOrCreateByEmail(ctx, email, "")
				if err != nil {
					return err
				}
				if err := membershipstore.New(db).Grant(ctx, ws.ID, u.ID, role); err != nil {
					return err
				}
				logger.Info("role granted", zap.String("workspace", slug), zap.String("email", u.Email), zap.Bool("new_user", created))
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s in %s\n", u.Email, role, slug)
				return nil
			})
		},
	}
}
