package saga

import (
	"context"

	"go.uber.org/multierr"

	"github.com/mercatohq/stockroom-backend/pkg/logger"
)

// UndoFunc reverses one completed workflow step.
type UndoFunc func(ctx context.Context) error

// Saga collects compensation steps while a multi-step workflow progresses.
// When a later step fails, Compensate runs the recorded undos in reverse
// order. A failing undo is logged and the remaining undos still run; undo
// errors never mask the original failure.
type Saga struct {
	name  string
	logg  *logger.Logger
	undos []UndoFunc
}

// New builds a saga for the named workflow.
func New(name string, logg *logger.Logger) *Saga {
	return &Saga{name: name, logg: logg}
}

// Record registers the undo for a step that just succeeded.
func (s *Saga) Record(undo UndoFunc) {
	if undo == nil {
		return
	}
	s.undos = append(s.undos, undo)
}

// Steps reports how many undo steps are recorded.
func (s *Saga) Steps() int {
	return len(s.undos)
}

// Compensate runs the recorded undos in reverse order and returns the
// aggregated undo errors. Callers return the original workflow error, not
// the compensation result.
func (s *Saga) Compensate(ctx context.Context) error {
	var errs error
	for i := len(s.undos) - 1; i >= 0; i-- {
		if err := s.undos[i](ctx); err != nil {
			errs = multierr.Append(errs, err)
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"saga": s.name,
					"step": i,
				})
				s.logg.Warn(logCtx, "compensation step failed: "+err.Error())
			}
		}
	}
	s.undos = nil
	return errs
}
