// Package services implements the business logic layer of RosterKit.
// It provides a clean separation between HTTP handlers and the cleaning
// pipeline, ensuring that business rules are centralized and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Available Services
//
// The package provides these core services:
//
//	- OperationsService: owns the pipeline runner, triggers and cancels runs
//	- DataService: reads back cleaned rosters, summaries and artifacts
//	- HealthService: health, readiness and liveness probes plus system stats
//
// # Error Handling
//
// Services return domain-specific errors that handlers transform:
// validation errors for invalid input, not-found errors for missing
// artifacts and operations, storage errors for unexpected failures.
// Typed errors carry their classification in errors.AppError; sentinel
// errors in this package cover the simple cases.
//
// # Testing
//
// Services are tested against temporary directories and the mock hub in
// test_helpers.go:
//
//	hub := new(MockOperationHub)
//	hub.On("BroadcastRefresh", mock.Anything, mock.Anything).Return()
//	svc, err := NewOperationsService(hub, cfg, nil, logger)
package services
