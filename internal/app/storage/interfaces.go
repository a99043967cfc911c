package storage

import (
	"context"
	"errors"
	"time"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/domain/subject"
	"github.com/classtrack/classtrack/internal/app/domain/user"
)

// ErrNotFound is returned when a row does not exist or is owned by a
// different user. Every implementation maps its own missing-row signal to
// this sentinel.
var ErrNotFound = errors.New("not found")

// AssignmentStore persists assignments. Get, Update and Delete are scoped by
// the owner user id: rows owned by another user behave as not found.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	GetAssignment(ctx context.Context, ownerUserID, id string) (assignment.Assignment, error)
	ListAssignments(ctx context.Context, ownerUserID, subjectID string) ([]assignment.Assignment, error)
	DeleteAssignment(ctx context.Context, ownerUserID, id string) error

	// MarkOverdue flags assignments whose due date is before cutoff and
	// returns the number of rows changed.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubjectStore persists subjects, scoped by owner user id.
type SubjectStore interface {
	CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error)
	GetSubject(ctx context.Context, ownerUserID, id string) (subject.Subject, error)
	ListSubjects(ctx context.Context, ownerUserID string) ([]subject.Subject, error)
	DeleteSubject(ctx context.Context, ownerUserID, id string) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// SessionStore persists login sessions keyed by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, s user.Session) (user.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error

	// PurgeExpiredSessions removes sessions past their expiry and returns
	// the number of rows removed.
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
