package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// standaloneErr is what a standalone mongod answers to a transaction.
var standaloneErr = mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

type fakeSession struct {
	mongo.Session
	txErr error
	ended bool
}

func (f *fakeSession) WithTransaction(ctx context.Context, fn func(mongo.SessionContext) (interface{}, error), _ ...*options.TransactionOptions) (interface{}, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return fn(mongo.NewSessionContext(ctx, f))
}

func (f *fakeSession) EndSession(context.Context) { f.ended = true }

type fakeClient struct {
	sess     *fakeSession
	startErr error
}

func (c *fakeClient) StartSession(...*options.SessionOptions) (mongo.Session, error) {
	if c.startErr != nil {
		return nil, c.startErr
	}
	return c.sess, nil
}

// recorder counts calls to the transactional body and the fallback.
type recorder struct {
	body, fallback int
	bodyErr        error
	fallbackErr    error
}

func (r *recorder) fn(context.Context) error {
	r.body++
	return r.bodyErr
}

func (r *recorder) fb(context.Context) error {
	r.fallback++
	return r.fallbackErr
}

func TestRun_CommitsInTransaction(t *testing.T) {
	client := &fakeClient{sess: &fakeSession{}}
	rec := &recorder{}

	require.NoError(t, Run(context.Background(), client, rec.fn, rec.fb))
	assert.Equal(t, 1, rec.body)
	assert.Zero(t, rec.fallback)
	assert.True(t, client.sess.ended, "session is ended")
}

func TestRun_BodyErrorSkipsFallback(t *testing.T) {
	decided := errors.New("already decided")
	rec := &recorder{bodyErr: decided}

	err := Run(context.Background(), &fakeClient{sess: &fakeSession{}}, rec.fn, rec.fb)
	assert.ErrorIs(t, err, decided)
	assert.Zero(t, rec.fallback)
}

func TestRun_StandaloneUsesFallback(t *testing.T) {
	rec := &recorder{}

	require.NoError(t, Run(context.Background(), &fakeClient{sess: &fakeSession{txErr: standaloneErr}}, rec.fn, rec.fb))
	assert.Zero(t, rec.body)
	assert.Equal(t, 1, rec.fallback)
}

func TestRun_SessionsUnsupportedUsesFallback(t *testing.T) {
	rec := &recorder{}
	client := &fakeClient{startErr: errors.New("session operations are not supported by this deployment")}

	require.NoError(t, Run(context.Background(), client, rec.fn, rec.fb))
	assert.Equal(t, 1, rec.fallback)
}

func TestRun_StartSessionFailureIsReturned(t *testing.T) {
	down := errors.New("client is disconnected")
	rec := &recorder{}

	err := Run(context.Background(), &fakeClient{startErr: down}, rec.fn, rec.fb)
	assert.ErrorIs(t, err, down)
	assert.Zero(t, rec.fallback)
}

func TestRun_NilFallbackSurfacesError(t *testing.T) {
	rec := &recorder{}

	err := Run(context.Background(), &fakeClient{sess: &fakeSession{txErr: standaloneErr}}, rec.fn, nil)
	require.Error(t, err)
	assert.True(t, IsNotSupported(err))
	assert.Zero(t, rec.body)
}

func TestRun_FallbackErrorPropagates(t *testing.T) {
	grantFailed := errors.New("grant role: write conflict")
	rec := &recorder{fallbackErr: grantFailed}

	err := Run(context.Background(), &fakeClient{sess: &fakeSession{txErr: standaloneErr}}, rec.fn, rec.fb)
	assert.ErrorIs(t, err, grantFailed)
	assert.Equal(t, 1, rec.fallback)
}

func TestRun_OtherTransactionErrorSkipsFallback(t *testing.T) {
	conflict := mongo.CommandError{Code: 112, Message: "WriteConflict"}
	rec := &recorder{}

	err := Run(context.Background(), &fakeClient{sess: &fakeSession{txErr: conflict}}, rec.fn, rec.fb)
	assert.Error(t, err)
	assert.Zero(t, rec.fallback)
}

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset by peer"), false},
		{"illegal operation code", standaloneErr, true},
		{"no replication code", mongo.CommandError{Code: 51, Message: "NoReplicationEnabled"}, true},
		{"unsupported in transaction code", mongo.CommandError{Code: 263, Message: "OperationNotSupportedInTransaction"}, true},
		{"write conflict code", mongo.CommandError{Code: 112, Message: "WriteConflict"}, false},
		{"wrapped command error", errors.Join(errors.New("grant role"), standaloneErr), true},
		{"replica set wording", errors.New("Transactions require a Replica Set"), true},
		{"sessions not supported wording", errors.New("Sessions are NOT SUPPORTED here"), true},
		{"transaction without cause", errors.New("transaction aborted"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotSupported(tt.err))
		})
	}
}
