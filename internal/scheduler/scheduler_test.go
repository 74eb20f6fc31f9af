package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type runnerFunc func(ctx context.Context)

func (f runnerFunc) Run(ctx context.Context) { f(ctx) }

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("not a schedule", time.UTC, runnerFunc(func(context.Context) {}), discard())
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestNew_EmptySpecDisables(t *testing.T) {
	s, err := New("", time.UTC, runnerFunc(func(context.Context) {
		t.Error("expected disabled scheduler not to run")
	}), discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	if !s.Next().IsZero() {
		t.Errorf("expected zero next time, got %v", s.Next())
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestScheduler_NextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	s, err := New("0 7 * * *", loc, runnerFunc(func(context.Context) {}), discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next := s.Next().In(loc)
	if next.Hour() != 7 || next.Minute() != 0 {
		t.Errorf("expected next run at 07:00 local, got %v", next)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New("@every 1s", time.UTC, runnerFunc(func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}), discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("expected job to run within 3s")
	}
}

func TestCronLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	l.Error(errors.New("boom"), "panic", "job", "digest")

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"job":"digest"`) {
		t.Errorf("expected error and key values in log, got %s", out)
	}
}
