package saga

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/multierr"
)

func TestCompensateRunsInReverse(t *testing.T) {
	t.Parallel()

	var order []int
	s := New("test", nil)
	for i := 0; i < 3; i++ {
		step := i
		s.Record(func(ctx context.Context) error {
			order = append(order, step)
			return nil
		})
	}

	if s.Steps() != 3 {
		t.Fatalf("expected 3 steps, got %d", s.Steps())
	}
	if err := s.Compensate(context.Background()); err != nil {
		t.Fatalf("compensate: %v", err)
	}
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("unexpected undo order: %v", order)
	}
	if s.Steps() != 0 {
		t.Fatalf("expected undos cleared, got %d", s.Steps())
	}
}

func TestCompensateContinuesPastFailures(t *testing.T) {
	t.Parallel()

	var ran []string
	s := New("test", nil)
	s.Record(func(ctx context.Context) error {
		ran = append(ran, "first")
		return nil
	})
	s.Record(func(ctx context.Context) error {
		ran = append(ran, "second")
		return errors.New("second undo failed")
	})
	s.Record(func(ctx context.Context) error {
		ran = append(ran, "third")
		return errors.New("third undo failed")
	})

	err := s.Compensate(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 undo errors, got %d", got)
	}
	if len(ran) != 3 {
		t.Fatalf("expected every undo to run, ran %v", ran)
	}
}

func TestRecordIgnoresNil(t *testing.T) {
	t.Parallel()

	s := New("test", nil)
	s.Record(nil)
	if s.Steps() != 0 {
		t.Fatalf("expected nil undo ignored")
	}
}
