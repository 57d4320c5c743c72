package application

import (
	"context"

	"github.com/sirupsen/logrus"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga records a compensating action for every forward step that succeeded.
// compensate runs them once, newest first, and never returns an error: a
// failed undo is logged and the remaining ones still run.
type saga struct {
	logger *logrus.Entry
	steps  []compensation
}

func newSaga(logger *logrus.Entry) *saga {
	return &saga{logger: logger}
}

func (s *saga) record(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

func (s *saga) len() int { return len(s.steps) }

// compensate returns how many undo actions failed.
func (s *saga) compensate(ctx context.Context) int {
	failed := 0
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			failed++
			s.logger.WithError(err).WithField("compensation", step.name).Warn("rollback step failed")
			continue
		}
		s.logger.WithField("compensation", step.name).Debug("rollback step done")
	}
	s.steps = nil
	return failed
}
