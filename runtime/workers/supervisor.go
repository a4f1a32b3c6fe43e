package workers

import (
	"community-pulse/contract"
	"community-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ contract.ISupervisor = (*Supervisor)(nil)

// Supervisor keeps the server loops alive
// Runs the dispatcher, the capacity sampler and the health reporter, one goroutine each
// Turns a panic into ErrWorkerPanic and restarts after restartInterval
// Lets a worker returning nil end for good
// Returns from Run once the parent context is cancelled and every goroutine is gone
type Supervisor struct {
	Cancel          context.CancelFunc // Cancels the workers only, never the parent
	wg              *sync.WaitGroup    // One entry per supervised goroutine
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run blocks until all workers are done
//
//	// Cancelling the parent stops the workers.
//	// Stop cancels the workers and leaves the parent untouched.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker under supervision in a dedicated goroutine.
// A dispatcher crash must never take the health reporter down with it:
// each worker is recovered and restarted on its own, counting its restarts.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		restarts := 0
		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			restarts++
			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err,
				"restarts", restarts, "retry_in", s.restartInterval)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
