package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestScheduler_StartAndStop(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.Start("03:00", func(ctx context.Context) error { return nil }, func(ctx context.Context) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}

func TestScheduler_MultipleTimes(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.Start("03:00;15:00", func(ctx context.Context) error { return nil }, func(ctx context.Context) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}

func TestScheduler_InvalidTime(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.Start("not-a-time", func(ctx context.Context) error { return nil }, func(ctx context.Context) {})
	if err == nil {
		t.Error("expected error for invalid time format")
		s.Stop()
	}
}
