package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type stubExpirer struct {
	batches []int
	err     error
	calls   int
	limits  []int
}

func (s *stubExpirer) ExpireOverdue(_ context.Context, limit int) (int, error) {
	s.limits = append(s.limits, limit)
	if s.calls >= len(s.batches) {
		return 0, s.err
	}
	n := s.batches[s.calls]
	s.calls++
	if n > limit {
		n = limit
	}
	return n, nil
}

func TestTimeoutSweeper_RunOnce(t *testing.T) {
	tests := []struct {
		name      string
		batches   []int
		err       error
		wantTotal int
		wantCalls int
	}{
		{name: "nothing overdue", batches: []int{0}, wantTotal: 0, wantCalls: 1},
		{name: "short batch stops", batches: []int{3}, wantTotal: 3, wantCalls: 1},
		{name: "full batches continue", batches: []int{10, 10, 4}, wantTotal: 24, wantCalls: 3},
		{name: "error stops", batches: []int{10}, err: errors.New("db down"), wantTotal: 10, wantCalls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exp := &stubExpirer{batches: tc.batches, err: tc.err}
			s := NewTimeoutSweeper(exp, "@every 1m", 10, zerolog.Nop())

			if got := s.RunOnce(context.Background()); got != tc.wantTotal {
				t.Fatalf("RunOnce() = %d, want %d", got, tc.wantTotal)
			}
			if exp.calls != tc.wantCalls {
				t.Fatalf("ExpireOverdue called %d times, want %d", exp.calls, tc.wantCalls)
			}
		})
	}
}

func TestTimeoutSweeper_NonPositiveBatchSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		exp := &stubExpirer{batches: []int{0, 0, 0}}
		s := NewTimeoutSweeper(exp, "@every 1m", size, zerolog.Nop())

		if got := s.RunOnce(context.Background()); got != 0 {
			t.Fatalf("batch %d: RunOnce() = %d, want 0", size, got)
		}
		if len(exp.limits) != 1 {
			t.Fatalf("batch %d: ExpireOverdue called %d times with nothing overdue, want 1", size, len(exp.limits))
		}
		if exp.limits[0] != DefaultSweepBatchSize {
			t.Fatalf("batch %d: limit = %d, want %d", size, exp.limits[0], DefaultSweepBatchSize)
		}
	}
}

func TestTimeoutSweeper_InvalidSchedule(t *testing.T) {
	s := NewTimeoutSweeper(&stubExpirer{}, "not a schedule", 10, zerolog.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() accepted an invalid schedule")
	}
}
