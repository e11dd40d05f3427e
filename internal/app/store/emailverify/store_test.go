package emailverify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVerifyToken_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, 0)
	userID := primitive.NewObjectID()
	res, err := store.Create(ctx, userID, "ruth@example.com", "/grace")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(res.Code) != CodeLength {
		t.Errorf("code %q has wrong length", res.Code)
	}

	v, err := store.VerifyToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if v.UserID != userID || v.Next != "/grace" {
		t.Errorf("unexpected verification %+v", v)
	}

	if _, err := store.VerifyToken(ctx, res.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on reuse, got %v", err)
	}
}

func TestVerifyToken_ConcurrentOnlyOneWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, 0)
	res, err := store.Create(ctx, primitive.NewObjectID(), "ruth@example.com", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.VerifyToken(ctx, res.Token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful verify, got %d", wins)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, time.Minute)
	res, err := store.Create(ctx, primitive.NewObjectID(), "ruth@example.com", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	if _, err := store.VerifyToken(ctx, res.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired link, got %v", err)
	}
}

func TestCreate_ReplacesPreviousLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, 0)
	userID := primitive.NewObjectID()
	first, err := store.Create(ctx, userID, "ruth@example.com", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, userID, "ruth@example.com", ""); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if _, err := store.VerifyToken(ctx, first.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected first link to be revoked, got %v", err)
	}
}

func TestVerifyCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, 0)
	res, err := store.Create(ctx, primitive.NewObjectID(), "ruth@example.com", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}
	if _, err := store.VerifyCode(ctx, "ruth@example.com", wrong); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := store.VerifyCode(ctx, "ruth@example.com", res.Code); err != nil {
		t.Errorf("VerifyCode with right code failed: %v", err)
	}
	if _, err := store.VerifyToken(ctx, res.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("code use must consume the link too, got %v", err)
	}
}

func TestVerifyCode_TooManyAttempts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db, 0)
	res, err := store.Create(ctx, primitive.NewObjectID(), "ruth@example.com", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}
	for i := 0; i < MaxVerifyAttempts; i++ {
		_, _ = store.VerifyCode(ctx, "ruth@example.com", wrong)
	}
	if _, err := store.VerifyCode(ctx, "ruth@example.com", res.Code); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("expected ErrTooManyAttempts, got %v", err)
	}
}
