package scheduler

import (
	"context"
)

// Scheduler defines the interface for scheduler implementations
// Schedulers are long-running background tasks that publish periodic triggers
//
//go:generate mockgen -source=scheduler.go -destination=../mocks/scheduler.go -package=mocks -mock_names=Scheduler=MockScheduler
type Scheduler interface {
	// Start begins the scheduler's main loop
	// This is a blocking call that runs until the context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop(ctx context.Context) error

	// Name returns the scheduler's name for logging and identification
	Name() string
}
