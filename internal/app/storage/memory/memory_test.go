package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/domain/subject"
	"github.com/classtrack/classtrack/internal/app/domain/user"
	"github.com/classtrack/classtrack/internal/app/storage"
)

func TestStore_AssignmentLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateAssignment(ctx, assignment.Assignment{
		OwnerUserID: "u1",
		SubjectID:   "s1",
		Title:       "essay",
		Priority:    assignment.PriorityNormal,
	})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("create did not populate id/timestamps: %#v", created)
	}

	got, err := store.GetAssignment(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got.Title != "essay" {
		t.Fatalf("unexpected assignment: %#v", got)
	}

	created.Title = "revised essay"
	updated, err := store.UpdateAssignment(ctx, created)
	if err != nil {
		t.Fatalf("update assignment: %v", err)
	}
	if updated.Title != "revised essay" {
		t.Fatalf("update not applied: %#v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("update must preserve created_at")
	}

	if err := store.DeleteAssignment(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete assignment: %v", err)
	}
	if _, err := store.GetAssignment(ctx, "u1", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_AssignmentOwnerScoping(t *testing.T) {
	store := New()
	ctx := context.Background()

	mine, err := store.CreateAssignment(ctx, assignment.Assignment{OwnerUserID: "u1", SubjectID: "s1", Title: "mine"})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if _, err := store.GetAssignment(ctx, "u2", mine.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign get should be not found, got %v", err)
	}
	if err := store.DeleteAssignment(ctx, "u2", mine.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	mine.OwnerUserID = "u2"
	if _, err := store.UpdateAssignment(ctx, mine); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign update should be not found, got %v", err)
	}

	list, err := store.ListAssignments(ctx, "u2", "")
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("foreign list should be empty, got %d items", len(list))
	}
}

func TestStore_ListAssignmentsFilter(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, sub := range []string{"math", "math", "art"} {
		if _, err := store.CreateAssignment(ctx, assignment.Assignment{OwnerUserID: "u1", SubjectID: sub, Title: "t"}); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	all, err := store.ListAssignments(ctx, "u1", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(all))
	}

	math, err := store.ListAssignments(ctx, "u1", "math")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(math) != 2 {
		t.Fatalf("expected 2 math assignments, got %d", len(math))
	}
}

func TestStore_MarkOverdue(t *testing.T) {
	store := New()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	late, err := store.CreateAssignment(ctx, assignment.Assignment{OwnerUserID: "u1", SubjectID: "s1", Title: "late", DueDate: past})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := store.CreateAssignment(ctx, assignment.Assignment{OwnerUserID: "u1", SubjectID: "s1", Title: "future", DueDate: future}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := store.CreateAssignment(ctx, assignment.Assignment{OwnerUserID: "u1", SubjectID: "s1", Title: "undated"}); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	changed, err := store.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 assignment flagged, got %d", changed)
	}

	got, err := store.GetAssignment(ctx, "u1", late.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if !got.Overdue {
		t.Fatalf("past-due assignment not flagged: %#v", got)
	}

	// A second sweep must not re-flag.
	changed, err = store.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected idempotent sweep, got %d changes", changed)
	}
}

func TestStore_SubjectLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateSubject(ctx, subject.Subject{OwnerUserID: "u1", Name: "Math"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	if _, err := store.GetSubject(ctx, "u2", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign get should be not found, got %v", err)
	}

	list, err := store.ListSubjects(ctx, "u1")
	if err != nil {
		t.Fatalf("list subjects: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Math" {
		t.Fatalf("unexpected subjects: %#v", list)
	}

	if err := store.DeleteSubject(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}
	if err := store.DeleteSubject(ctx, "u1", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestStore_Users(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateUser(ctx, user.User{Email: "a@b.c", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := store.CreateUser(ctx, user.User{Email: "a@b.c"}); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	byEmail, err := store.GetUserByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("lookup mismatch: %#v", byEmail)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Sessions(t *testing.T) {
	store := New()
	ctx := context.Background()

	now := time.Now().UTC()
	live, err := store.CreateSession(ctx, user.Session{UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	expired, err := store.CreateSession(ctx, user.Session{UserID: "u1", TokenHash: "h2", ExpiresAt: now.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := store.GetSessionByTokenHash(ctx, "h1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ID != live.ID {
		t.Fatalf("lookup mismatch: %#v", got)
	}

	at := now.Add(time.Minute)
	if err := store.TouchSession(ctx, live.ID, at); err != nil {
		t.Fatalf("touch session: %v", err)
	}
	got, _ = store.GetSessionByTokenHash(ctx, "h1")
	if !got.LastSeenAt.Equal(at) {
		t.Fatalf("touch not applied: %#v", got)
	}

	purged, err := store.PurgeExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("purge sessions: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
	if _, err := store.GetSessionByTokenHash(ctx, "h2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired session %s should be gone, got %v", expired.ID, err)
	}

	if err := store.DeleteSession(ctx, live.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSessionByTokenHash(ctx, "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deleted session should be gone, got %v", err)
	}
}
