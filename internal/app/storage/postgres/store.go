// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/domain/subject"
	"github.com/classtrack/classtrack/internal/app/domain/user"
	"github.com/classtrack/classtrack/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.AssignmentStore = (*Store)(nil)
var _ storage.SubjectStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// assignmentRow mirrors the assignments table; due_date is nullable.
type assignmentRow struct {
	ID          string       `db:"id"`
	OwnerUserID string       `db:"owner_user_id"`
	SubjectID   string       `db:"subject_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Priority    string       `db:"priority"`
	DueDate     sql.NullTime `db:"due_date"`
	Overdue     bool         `db:"overdue"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r assignmentRow) toDomain() assignment.Assignment {
	a := assignment.Assignment{
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		SubjectID:   r.SubjectID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    assignment.Priority(r.Priority),
		Overdue:     r.Overdue,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DueDate.Valid {
		a.DueDate = r.DueDate.Time.UTC()
	}
	return a
}

// --- AssignmentStore ---------------------------------------------------------

func (s *Store) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, owner_user_id, subject_id, title, description, priority, due_date, overdue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.OwnerUserID, a.SubjectID, a.Title, a.Description, string(a.Priority), toNullTime(a.DueDate), a.Overdue, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	existing, err := s.GetAssignment(ctx, a.OwnerUserID, a.ID)
	if err != nil {
		return assignment.Assignment{}, err
	}

	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE assignments
		SET subject_id = $3, title = $4, description = $5, priority = $6, due_date = $7, overdue = $8, updated_at = $9
		WHERE id = $1 AND owner_user_id = $2
	`, a.ID, a.OwnerUserID, a.SubjectID, a.Title, a.Description, string(a.Priority), toNullTime(a.DueDate), a.Overdue, a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return assignment.Assignment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAssignment(ctx context.Context, ownerUserID, id string) (assignment.Assignment, error) {
	var row assignmentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_user_id, subject_id, title, description, priority, due_date, overdue, created_at, updated_at
		FROM assignments
		WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return assignment.Assignment{}, storage.ErrNotFound
	}
	if err != nil {
		return assignment.Assignment{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAssignments(ctx context.Context, ownerUserID, subjectID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_user_id, subject_id, title, description, priority, due_date, overdue, created_at, updated_at
		FROM assignments
		WHERE owner_user_id = $1 AND ($2 = '' OR subject_id = $2)
		ORDER BY created_at
	`, ownerUserID, subjectID)
	if err != nil {
		return nil, err
	}

	result := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, ownerUserID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM assignments WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE assignments
		SET overdue = TRUE, updated_at = $2
		WHERE overdue = FALSE AND due_date IS NOT NULL AND due_date < $1
	`, cutoff.UTC(), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// --- SubjectStore ------------------------------------------------------------

func (s *Store) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (id, owner_user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.OwnerUserID, sub.Name, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return subject.Subject{}, err
	}
	return sub, nil
}

func (s *Store) GetSubject(ctx context.Context, ownerUserID, id string) (subject.Subject, error) {
	var sub subject.Subject
	err := s.db.GetContext(ctx, &sub, `
		SELECT id, owner_user_id, name, created_at, updated_at
		FROM subjects
		WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return subject.Subject{}, storage.ErrNotFound
	}
	if err != nil {
		return subject.Subject{}, err
	}
	return sub, nil
}

func (s *Store) ListSubjects(ctx context.Context, ownerUserID string) ([]subject.Subject, error) {
	var result []subject.Subject
	err := s.db.SelectContext(ctx, &result, `
		SELECT id, owner_user_id, name, created_at, updated_at
		FROM subjects
		WHERE owner_user_id = $1
		ORDER BY created_at
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteSubject(ctx context.Context, ownerUserID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM subjects WHERE id = $1 AND owner_user_id = $2
	`, id, ownerUserID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// --- SessionStore ------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess user.Session) (user.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.CreatedAt, sess.LastSeenAt)
	if err != nil {
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error) {
	var sess user.Session
	err := s.db.GetContext(ctx, &sess, `
		SELECT id, user_id, token_hash, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return user.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = $2 WHERE id = $1
	`, id, at.UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, now.UTC())
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
