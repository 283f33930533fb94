package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLocker struct {
	held   map[string]bool
	setErr error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

func TestRunJobAcquiresAndReleases(t *testing.T) {
	locker := newFakeLocker()
	runner, err := NewRunner(locker, nil, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	ran := 0
	job := Job{Name: "reconciler", Interval: time.Minute, Fn: func(context.Context) error {
		ran++
		return nil
	}}

	if !runner.RunJob(context.Background(), job) {
		t.Fatal("uncontended job must run")
	}
	if ran != 1 {
		t.Fatalf("expected 1 execution, got %d", ran)
	}
	if len(locker.held) != 0 {
		t.Fatalf("lock must be released, still held: %v", locker.held)
	}
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	locker := newFakeLocker()
	runner, err := NewRunner(locker, nil, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	blocking := Job{Name: "reconciler", Interval: time.Minute, Fn: func(context.Context) error {
		// Contend from a second runner while the first still holds the lock.
		other, err := NewRunner(locker, nil, nil)
		if err != nil {
			t.Fatalf("second runner: %v", err)
		}
		if other.RunJob(context.Background(), Job{Name: "reconciler", Interval: time.Minute, Fn: func(context.Context) error {
			t.Fatal("contended job must not run")
			return nil
		}}) {
			t.Fatal("second runner must lose the lock race")
		}
		return nil
	}}
	if !runner.RunJob(context.Background(), blocking) {
		t.Fatal("first runner must win the lock")
	}
}

func TestRunJobLockErrorSkips(t *testing.T) {
	locker := newFakeLocker()
	locker.setErr = errors.New("redis down")
	runner, err := NewRunner(locker, nil, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if runner.RunJob(context.Background(), Job{Name: "reconciler", Interval: time.Minute, Fn: func(context.Context) error {
		t.Fatal("job must not run without the lock")
		return nil
	}}) {
		t.Fatal("lock error must skip the run")
	}
}

func TestRegisterValidation(t *testing.T) {
	runner, err := NewRunner(newFakeLocker(), nil, nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if err := runner.Register(Job{Name: "", Interval: time.Minute, Fn: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("empty name must be rejected")
	}
	if err := runner.Register(Job{Name: "x", Interval: 0, Fn: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("zero interval must be rejected")
	}
	if err := runner.Register(Job{Name: "x", Interval: time.Minute}); err == nil {
		t.Fatal("nil fn must be rejected")
	}
	if err := runner.Register(Job{Name: "x", Interval: time.Minute, Fn: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}
}
