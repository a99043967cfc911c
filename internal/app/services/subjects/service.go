// Package subjects implements owner-scoped CRUD over subjects.
package subjects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/classtrack/classtrack/internal/app/domain/subject"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ErrInvalid marks validation failures; handlers map it to 400.
var ErrInvalid = errors.New("invalid subject")

// ErrInUse is returned when deleting a subject that still has assignments.
var ErrInUse = errors.New("subject has assignments")

// Service manages subject records.
type Service struct {
	store       storage.SubjectStore
	assignments storage.AssignmentStore
	log         *logger.Logger
}

// New constructs a subject service.
func New(store storage.SubjectStore, assignments storage.AssignmentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("subjects")
	}
	return &Service{store: store, assignments: assignments, log: log}
}

// Create persists a new subject for the owner.
func (s *Service) Create(ctx context.Context, ownerUserID, name string) (subject.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return subject.Subject{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(ownerUserID) == "" {
		return subject.Subject{}, fmt.Errorf("%w: owner is required", ErrInvalid)
	}

	created, err := s.store.CreateSubject(ctx, subject.Subject{OwnerUserID: ownerUserID, Name: name})
	if err != nil {
		return subject.Subject{}, err
	}
	s.log.WithField("subject_id", created.ID).
		WithField("owner_user_id", ownerUserID).
		Info("subject created")
	return created, nil
}

// Get returns a subject owned by the user.
func (s *Service) Get(ctx context.Context, ownerUserID, id string) (subject.Subject, error) {
	return s.store.GetSubject(ctx, ownerUserID, id)
}

// List returns all subjects owned by the user.
func (s *Service) List(ctx context.Context, ownerUserID string) ([]subject.Subject, error) {
	return s.store.ListSubjects(ctx, ownerUserID)
}

// Delete removes a subject. It refuses while assignments still reference it.
func (s *Service) Delete(ctx context.Context, ownerUserID, id string) error {
	if _, err := s.store.GetSubject(ctx, ownerUserID, id); err != nil {
		return err
	}

	if s.assignments != nil {
		attached, err := s.assignments.ListAssignments(ctx, ownerUserID, id)
		if err != nil {
			return err
		}
		if len(attached) > 0 {
			return fmt.Errorf("%w: %d assignments attached", ErrInUse, len(attached))
		}
	}

	if err := s.store.DeleteSubject(ctx, ownerUserID, id); err != nil {
		return err
	}
	s.log.WithField("subject_id", id).
		WithField("owner_user_id", ownerUserID).
		Info("subject deleted")
	return nil
}
