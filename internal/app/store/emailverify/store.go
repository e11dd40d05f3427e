// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the number of digits in the fallback sign-in code.
	CodeLength = 6
	// DefaultExpiry is how long a magic link stays valid.
	DefaultExpiry = 15 * time.Minute
	BcryptCost    = 10
	// MaxVerifyAttempts caps wrong-code guesses per verification.
	MaxVerifyAttempts = 5
)

var (
	// ErrNotFound is returned when a token is unknown, used, or expired.
	ErrNotFound        = errors.New("sign-in link not found or expired")
	ErrInvalidCode     = errors.New("invalid sign-in code")
	ErrTooManyAttempts = errors.New("too many sign-in attempts")
)

// Verification is one outstanding magic link. The token is the link secret;
// the code is a typed fallback for mail clients that mangle links.
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	Token     string             `bson:"token"`
	CodeHash  string             `bson:"code_hash"`
	Next      string             `bson:"next,omitempty"` // local return path after sign-in
	Attempts  int                `bson:"attempts"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. A non-positive expiry means DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("email_verifications"),
		expiry: expiry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Expiry returns how long new links stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// CreateResult carries the plaintext secrets to mail to the user.
type CreateResult struct {
	Token     string
	Code      string
	ExpiresAt time.Time
}

// Create issues a new link for userID, replacing any outstanding one.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email, next string) (*CreateResult, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	now := s.now()
	v := Verification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Email:     email,
		Token:     uuid.NewString(),
		CodeHash:  string(hash),
		Next:      next,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return nil, fmt.Errorf("clear previous links: %w", err)
	}
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return nil, fmt.Errorf("insert verification: %w", err)
	}
	return &CreateResult{Token: v.Token, Code: code, ExpiresAt: v.ExpiresAt}, nil
}

// VerifyToken consumes token. Only one concurrent caller can succeed; the
// TTL index may lag, so expiry is checked in the filter too.
func (s *Store) VerifyToken(ctx context.Context, token string) (*Verification, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var v Verification
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// VerifyCode checks a typed code for email. Every attempt counts toward
// MaxVerifyAttempts; a correct code consumes the verification.
func (s *Store) VerifyCode(ctx context.Context, email, code string) (*Verification, error) {
	var v Verification
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": email, "expires_at": bson.M{"$gt": s.now()}},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if v.Attempts > MaxVerifyAttempts {
		return nil, ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)); err != nil {
		return nil, ErrInvalidCode
	}

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": v.ID})
	if err != nil {
		return nil, err
	}
	if res.DeletedCount == 0 {
		// Consumed by a concurrent verify.
		return nil, ErrNotFound
	}
	return &v, nil
}

// generateCode returns a uniformly random CodeLength-digit string.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
