package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// dbFlags are shared by every command that touches the database.
type dbFlags struct {
	uri      string
	database string
	verbose  bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	flags := &dbFlags{}
	root := &cobra.Command{
		Use:           "studyhubctl",
		Short:         "Administer a StudyHub database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.uri, "mongo-uri", envOr("STUDYHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	root.PersistentFlags().StringVar(&flags.database, "database", envOr("STUDYHUB_MONGO_DATABASE", "studyhub"), "MongoDB database name")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log progress")

	root.AddCommand(
		newIndexesCmd(flags),
		newSeedCmd(flags),
		newGrantCmd(flags),
		newSessionKeyCmd(),
	)
	return root
}

func (f *dbFlags) logger() *zap.Logger {
	if !f.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// connect opens the database and hands it to fn, disconnecting afterwards.
func (f *dbFlags) connect(ctx context.Context, fn func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error) error {
	logger := f.logger()
	defer func() { _ = logger.Sync() }()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(f.uri))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping %s: %w", f.uri, err)
	}

	ctx, cancel = context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	return fn(ctx, client.Database(f.database), logger)
}
