// Package app composes the classtrack services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── assignment/     # Assignments and priorities
//	│   ├── subject/        # Subjects grouping assignments
//	│   └── user/           # Users and login sessions
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (AssignmentStore, SessionStore, ...)
//	│   ├── memory/         # In-memory implementation for tests and development
//	│   ├── postgres/       # PostgreSQL implementation for production
//	│   └── rediscache/     # Redis read-through cache over the session store
//	├── services/           # Business logic (assignments, subjects, auth, reminders)
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Lifecycle management for long-running services
//	└── metrics/            # Prometheus instrumentation
//
// Services hold the business rules and depend only on the storage interfaces;
// the concrete store is chosen at startup. The Application struct wires
// services to stores and registers background services (the reminder sweeper)
// with the system manager, which starts them in order and stops them in
// reverse.
//
// # Adding a New Domain
//
//  1. Create domain models in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/postgres/ and storage/memory/
//  4. Create the service in internal/app/services/<name>/
//  5. Wire it in application.go and expose handlers in httpapi/
package app
