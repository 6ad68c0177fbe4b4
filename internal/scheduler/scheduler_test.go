package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/services"
)

type countingRunner struct {
	calls   atomic.Int32
	err     error
	sawDead atomic.Bool
}

func (r *countingRunner) Run(ctx context.Context) (*models.RunReport, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		r.sawDead.Store(true)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &models.RunReport{RunID: "test"}, nil
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRunner{}, 0)
	if err := s.Register("every day at ten"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if err := s.Register("0 22 * * 1-5"); err != nil {
		t.Fatalf("expected valid cron expression to register, got %v", err)
	}
	if n := len(s.Cron.Entries()); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestRunNow_AppliesTimeout(t *testing.T) {
	r := &countingRunner{}
	s := NewScheduler(context.Background(), r, time.Minute)
	s.RunNow()

	if r.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", r.calls.Load())
	}
	if !r.sawDead.Load() {
		t.Error("expected the run context to carry a deadline")
	}
}

func TestRunNow_SwallowsErrors(t *testing.T) {
	for _, err := range []error{services.ErrRunInProgress, context.Canceled, errors.New("sink down")} {
		r := &countingRunner{err: err}
		s := NewScheduler(context.Background(), r, 0)
		s.RunNow()
		if r.calls.Load() != 1 {
			t.Errorf("%v: expected 1 call, got %d", err, r.calls.Load())
		}
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRunner{}, 0)
	if err := s.Register("@every 1h"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	s.Start()
	s.Stop()
}
