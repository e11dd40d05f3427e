package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/app/system/seed"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newSeedCmd(flags *dbFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load churches, members and courses from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			f, err := seed.Parse(fh)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d churches\n", args[0], len(f.Churches))
				return nil
			}

			return flags.connect(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
				// Seeding relies on the unique indexes for dedup.
				if err := indexes.EnsureAll(ctx, db); err != nil {
					return err
				}
				rep, err := seed.Apply(ctx, db, f, logger)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seeded:", rep)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}
