package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/domain/subject"
	"github.com/classtrack/classtrack/internal/app/domain/user"
	"github.com/classtrack/classtrack/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	assignments     map[string]assignment.Assignment
	subjects        map[string]subject.Subject
	users           map[string]user.User
	usersByEmail    map[string]string
	sessions        map[string]user.Session
	sessionsByToken map[string]string
}

var _ storage.AssignmentStore = (*Store)(nil)
var _ storage.SubjectStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		assignments:     make(map[string]assignment.Assignment),
		subjects:        make(map[string]subject.Subject),
		users:           make(map[string]user.User),
		usersByEmail:    make(map[string]string),
		sessions:        make(map[string]user.Session),
		sessionsByToken: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// AssignmentStore implementation ----------------------------------------------

func (s *Store) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.assignments[a.ID]; exists {
		return assignment.Assignment{}, fmt.Errorf("assignment %s already exists", a.ID)
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.assignments[a.ID]
	if !ok || original.OwnerUserID != a.OwnerUserID {
		return assignment.Assignment{}, storage.ErrNotFound
	}

	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) GetAssignment(_ context.Context, ownerUserID, id string) (assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok || a.OwnerUserID != ownerUserID {
		return assignment.Assignment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAssignments(_ context.Context, ownerUserID, subjectID string) ([]assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []assignment.Assignment
	for _, a := range s.assignments {
		if a.OwnerUserID != ownerUserID {
			continue
		}
		if subjectID != "" && a.SubjectID != subjectID {
			continue
		}
		result = append(result, a)
	}
	sortByCreatedAt(result)
	return result, nil
}

func (s *Store) DeleteAssignment(_ context.Context, ownerUserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[id]
	if !ok || a.OwnerUserID != ownerUserID {
		return storage.ErrNotFound
	}
	delete(s.assignments, id)
	return nil
}

func (s *Store) MarkOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, a := range s.assignments {
		if !a.Overdue && !a.DueDate.IsZero() && a.DueDate.Before(cutoff) {
			a.Overdue = true
			a.UpdatedAt = time.Now().UTC()
			s.assignments[id] = a
			changed++
		}
	}
	return changed, nil
}

// SubjectStore implementation --------------------------------------------------

func (s *Store) CreateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = s.nextIDLocked()
	} else if _, exists := s.subjects[sub.ID]; exists {
		return subject.Subject{}, fmt.Errorf("subject %s already exists", sub.ID)
	}

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	s.subjects[sub.ID] = sub
	return sub, nil
}

func (s *Store) GetSubject(_ context.Context, ownerUserID, id string) (subject.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok || sub.OwnerUserID != ownerUserID {
		return subject.Subject{}, storage.ErrNotFound
	}
	return sub, nil
}

func (s *Store) ListSubjects(_ context.Context, ownerUserID string) ([]subject.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []subject.Subject
	for _, sub := range s.subjects {
		if sub.OwnerUserID == ownerUserID {
			result = append(result, sub)
		}
	}
	sortSubjectsByCreatedAt(result)
	return result, nil
}

func (s *Store) DeleteSubject(_ context.Context, ownerUserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subjects[id]
	if !ok || sub.OwnerUserID != ownerUserID {
		return storage.ErrNotFound
	}
	delete(s.subjects, id)
	return nil
}

// UserStore implementation -----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[u.Email]; exists {
		return user.User{}, fmt.Errorf("user with email %s already exists", u.Email)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	u.CreatedAt = time.Now().UTC()

	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// SessionStore implementation --------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess user.Session) (user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now

	s.sessions[sess.ID] = sess
	s.sessionsByToken[sess.TokenHash] = sess.ID
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (user.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.sessionsByToken[tokenHash]
	if !ok {
		return user.Session{}, storage.ErrNotFound
	}
	return s.sessions[id], nil
}

func (s *Store) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	sess.LastSeenAt = at.UTC()
	s.sessions[id] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.sessionsByToken, sess.TokenHash)
	delete(s.sessions, id)
	return nil
}

func (s *Store) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessionsByToken, sess.TokenHash)
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func sortByCreatedAt(items []assignment.Assignment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func sortSubjectsByCreatedAt(items []subject.Subject) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
