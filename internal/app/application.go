// Package app wires the domain services to their stores and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/classtrack/classtrack/internal/app/services/assignments"
	"github.com/classtrack/classtrack/internal/app/services/auth"
	"github.com/classtrack/classtrack/internal/app/services/reminders"
	"github.com/classtrack/classtrack/internal/app/services/subjects"
	"github.com/classtrack/classtrack/internal/app/storage"
	"github.com/classtrack/classtrack/internal/app/storage/memory"
	"github.com/classtrack/classtrack/internal/app/system"
	"github.com/classtrack/classtrack/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Assignments storage.AssignmentStore
	Subjects    storage.SubjectStore
	Users       storage.UserStore
	Sessions    storage.SessionStore
}

// Options carries application-level settings.
type Options struct {
	// JWTSecret signs login tokens. Required outside tests.
	JWTSecret []byte
	// SessionTTL bounds login session lifetime. Zero means 24h.
	SessionTTL time.Duration
	// ReminderSchedule is a cron expression for the housekeeping sweep.
	// Empty means the reminders.DefaultSchedule.
	ReminderSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Assignments *assignments.Service
	Subjects    *subjects.Service
	Auth        *auth.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Assignments == nil {
		stores.Assignments = mem
	}
	if stores.Subjects == nil {
		stores.Subjects = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}

	if len(opts.JWTSecret) == 0 {
		log.Warn("no JWT secret configured; using an insecure development default")
		opts.JWTSecret = []byte("classtrack-dev-secret")
	}

	manager := system.NewManager()

	assignmentService := assignments.New(stores.Assignments, stores.Subjects, log)
	subjectService := subjects.New(stores.Subjects, stores.Assignments, log)
	authService := auth.New(stores.Users, stores.Sessions, opts.JWTSecret, opts.SessionTTL, log)

	sweeper := reminders.NewSweeper(stores.Assignments, stores.Sessions, opts.ReminderSchedule, log)
	if err := manager.Register(sweeper); err != nil {
		return nil, fmt.Errorf("register reminders: %w", err)
	}

	return &Application{
		manager:     manager,
		log:         log,
		Assignments: assignmentService,
		Subjects:    subjectService,
		Auth:        authService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
