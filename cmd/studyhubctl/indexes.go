package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/app/system/validators"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newIndexesCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create collections, validators and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.connect(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
				if err := validators.EnsureAll(ctx, db); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: validators:", err)
				}
				if err := indexes.EnsureAll(ctx, db); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexes ensured on %s\n", db.Name())
				return nil
			})
		},
	}
}
