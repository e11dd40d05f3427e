// Package txn runs multi-document writes inside a MongoDB transaction, with a
// caller-supplied fallback for deployments that cannot run transactions
// (a standalone mongod used in development and tests).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Server error codes that mean "transactions are not available here".
const (
	codeIllegalOperation        = 20
	codeNoReplicationEnabled    = 51
	codeOperationNotSupportedTx = 263
)

// SessionStarter opens driver sessions. *mongo.Client satisfies it.
type SessionStarter interface {
	StartSession(opts ...*options.SessionOptions) (mongo.Session, error)
}

// Run executes fn in a transaction on client. If the deployment rejects
// transactions, fallback runs instead with the plain context. A nil fallback
// turns that case into an error.
//
// fn may be retried by the driver on transient errors and must be safe to
// run more than once.
func Run(ctx context.Context, client SessionStarter, fn func(ctx context.Context) error, fallback func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return runFallback(ctx, err, fallback)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runFallback(ctx, err, fallback)
	}
	return err
}

func runFallback(ctx context.Context, cause error, fallback func(ctx context.Context) error) error {
	if !IsNotSupported(cause) || fallback == nil {
		return cause
	}
	zap.L().Debug("transactions unavailable; using fallback", zap.Error(cause))
	return fallback(ctx)
}

// IsNotSupported reports whether err says the server cannot run a
// transaction (standalone server, unsupported storage engine, etc).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotSupportedTx:
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") {
		if strings.Contains(s, "replica set") || strings.Contains(s, "session") || strings.Contains(s, "illegal operation") {
			return true
		}
	}
	return strings.Contains(s, "session") && strings.Contains(s, "not supported")
}
