// Package auth implements registration, login and session validation. Tokens
// are HS256 JWTs backed by a server-side session row; only a SHA-256 hash of
// the token is persisted.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrack/classtrack/internal/app/domain/user"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/pkg/logger"
)

const issuer = "classtrack"

// ErrInvalid marks validation failures; handlers map it to 400.
var ErrInvalid = errors.New("invalid input")

// ErrInvalidCredentials is returned for unknown users, wrong passwords and
// bad or expired tokens.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims are the JWT claims issued at login.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service issues and validates login sessions.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	secret   []byte
	ttl      time.Duration
	log      *logger.Logger
}

// New constructs an auth service. ttl bounds session lifetime.
func New(users storage.UserStore, sessions storage.SessionStore, secret []byte, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, sessions: sessions, secret: secret, ttl: ttl, log: log}
}

// Register creates a user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, fmt.Errorf("%w: a valid email is required", ErrInvalid)
	}
	if len(password) < 8 {
		return user.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalid)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, fmt.Errorf("%w: email already registered", ErrInvalid)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}

	created, err := s.users.CreateUser(ctx, user.User{Email: email, PasswordHash: string(hash)})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Login verifies credentials, issues a JWT and records the session.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", user.Session{}, ErrInvalidCredentials
		}
		return "", user.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", user.Session{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", user.Session{}, err
	}

	sess, err := s.sessions.CreateSession(ctx, user.Session{
		UserID:    u.ID,
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", user.Session{}, err
	}

	s.log.WithField("user_id", u.ID).Info("user logged in")
	return token, sess, nil
}

// Logout revokes the session backing the token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.GetSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	s.log.WithField("user_id", sess.UserID).Info("user logged out")
	return nil
}

// Validate checks the JWT signature and the backing session, updates session
// activity and returns the authenticated user id.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", ErrInvalidCredentials
	}

	sess, err := s.sessions.GetSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if sess.UserID != claims.UserID || sess.Expired(time.Now().UTC()) {
		return "", ErrInvalidCredentials
	}

	// Best-effort activity update; a failed touch must not fail the request.
	if err := s.sessions.TouchSession(ctx, sess.ID, time.Now().UTC()); err != nil {
		s.log.WithError(err).Debug("session touch failed")
	}

	return claims.UserID, nil
}

// HashToken returns the hex SHA-256 digest used to key session rows.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
