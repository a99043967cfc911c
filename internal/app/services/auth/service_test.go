package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classtrack/classtrack/internal/app/storage/memory"
)

var testSecret = []byte("test-secret")

func newService(ttl time.Duration) (*Service, *memory.Store) {
	store := memory.New()
	return New(store, store, testSecret, ttl, nil), store
}

func TestService_Register(t *testing.T) {
	svc, _ := newService(0)
	ctx := context.Background()

	created, err := svc.Register(ctx, "  Student@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Email != "student@example.com" {
		t.Fatalf("email not normalised: %q", created.Email)
	}
	if created.PasswordHash == "password123" || created.PasswordHash == "" {
		t.Fatalf("password stored in the clear")
	}

	if _, err := svc.Register(ctx, "student@example.com", "password123"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for duplicate email, got %v", err)
	}
	if _, err := svc.Register(ctx, "not-an-email", "password123"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for bad email, got %v", err)
	}
	if _, err := svc.Register(ctx, "short@example.com", "short"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for short password, got %v", err)
	}
}

func TestService_LoginAndValidate(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, sess, err := svc.Login(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || sess.UserID != u.ID {
		t.Fatalf("unexpected login result: token=%q sess=%#v", token, sess)
	}

	userID, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, userID)
	}

	if _, _, err := svc.Login(ctx, "student@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestService_LogoutRevokesSession(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "student@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// The JWT is still cryptographically valid, but the session is gone.
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after logout, got %v", err)
	}

	// Logging out an unknown token is a no-op.
	if err := svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout unknown token: %v", err)
	}
}

func TestService_ValidateRejectsForgedToken(t *testing.T) {
	svc, _ := newService(time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "student@example.com", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Same claims, wrong key.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	if _, err := svc.Validate(ctx, forged); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for forged token, got %v", err)
	}

	// Valid signature but no backing session.
	orphan, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign orphan token: %v", err)
	}
	if _, err := svc.Validate(ctx, orphan); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for sessionless token, got %v", err)
	}
}

func TestService_ValidateExpiredSession(t *testing.T) {
	svc, store := newService(time.Millisecond)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "student@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, sess, err := svc.Login(ctx, "student@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for expired session, got %v", err)
	}

	purged, err := store.PurgeExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected session %s purged, got %d", sess.ID, purged)
	}
}

func TestHashToken(t *testing.T) {
	if HashToken("a") == HashToken("b") {
		t.Fatalf("distinct tokens must hash differently")
	}
	if len(HashToken("token")) != 64 {
		t.Fatalf("expected hex sha256 digest")
	}
}
