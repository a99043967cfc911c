// Package assignments implements owner-scoped CRUD over assignments.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ErrInvalid marks validation failures; handlers map it to 400.
var ErrInvalid = errors.New("invalid assignment")

// Service manages assignment records and validation.
type Service struct {
	store    storage.AssignmentStore
	subjects storage.SubjectStore
	log      *logger.Logger
}

// New constructs an assignment service.
func New(store storage.AssignmentStore, subjects storage.SubjectStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assignments")
	}
	return &Service{store: store, subjects: subjects, log: log}
}

// Create validates and persists a new assignment for the owner.
func (s *Service) Create(ctx context.Context, ownerUserID string, a assignment.Assignment) (assignment.Assignment, error) {
	a.OwnerUserID = ownerUserID
	if err := s.validate(ctx, &a); err != nil {
		return assignment.Assignment{}, err
	}

	created, err := s.store.CreateAssignment(ctx, a)
	if err != nil {
		return assignment.Assignment{}, err
	}
	s.log.WithField("assignment_id", created.ID).
		WithField("owner_user_id", created.OwnerUserID).
		WithField("subject_id", created.SubjectID).
		Info("assignment created")
	return created, nil
}

// Get returns an assignment owned by the user.
func (s *Service) Get(ctx context.Context, ownerUserID, id string) (assignment.Assignment, error) {
	return s.store.GetAssignment(ctx, ownerUserID, id)
}

// List returns assignments for the owner, optionally filtered by subject.
func (s *Service) List(ctx context.Context, ownerUserID, subjectID string) ([]assignment.Assignment, error) {
	return s.store.ListAssignments(ctx, ownerUserID, subjectID)
}

// UpdateParams carries optional field updates; nil fields are left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	Priority    *assignment.Priority
	SubjectID   *string
	DueDate     *time.Time
}

// Update applies partial updates to an assignment owned by the user.
func (s *Service) Update(ctx context.Context, ownerUserID, id string, params UpdateParams) (assignment.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, ownerUserID, id)
	if err != nil {
		return assignment.Assignment{}, err
	}

	if params.Title != nil {
		a.Title = *params.Title
	}
	if params.Description != nil {
		a.Description = *params.Description
	}
	if params.Priority != nil {
		a.Priority = *params.Priority
	}
	if params.SubjectID != nil {
		a.SubjectID = *params.SubjectID
	}
	if params.DueDate != nil {
		a.DueDate = *params.DueDate
		// A moved deadline clears the overdue flag; the sweeper will
		// re-evaluate it.
		a.Overdue = false
	}

	if err := s.validate(ctx, &a); err != nil {
		return assignment.Assignment{}, err
	}

	updated, err := s.store.UpdateAssignment(ctx, a)
	if err != nil {
		return assignment.Assignment{}, err
	}
	s.log.WithField("assignment_id", id).
		WithField("owner_user_id", ownerUserID).
		Info("assignment updated")
	return updated, nil
}

// Delete removes an assignment owned by the user.
func (s *Service) Delete(ctx context.Context, ownerUserID, id string) error {
	if err := s.store.DeleteAssignment(ctx, ownerUserID, id); err != nil {
		return err
	}
	s.log.WithField("assignment_id", id).
		WithField("owner_user_id", ownerUserID).
		Info("assignment deleted")
	return nil
}

func (s *Service) validate(ctx context.Context, a *assignment.Assignment) error {
	if strings.TrimSpace(a.OwnerUserID) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalid)
	}

	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}

	if a.Priority == "" {
		a.Priority = assignment.PriorityNormal
	}
	a.Priority = assignment.Priority(strings.ToLower(string(a.Priority)))
	if !a.Priority.Valid() {
		return fmt.Errorf("%w: unsupported priority %q", ErrInvalid, a.Priority)
	}

	a.SubjectID = strings.TrimSpace(a.SubjectID)
	if a.SubjectID == "" {
		return fmt.Errorf("%w: subject_id is required", ErrInvalid)
	}
	if s.subjects != nil {
		if _, err := s.subjects.GetSubject(ctx, a.OwnerUserID, a.SubjectID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: subject %s not found", ErrInvalid, a.SubjectID)
			}
			return fmt.Errorf("subject validation failed: %w", err)
		}
	}

	if !a.DueDate.IsZero() {
		a.DueDate = a.DueDate.UTC()
	}
	return nil
}
