package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourneighborhoodchef/nodekeeper/internal/client"
	"github.com/yourneighborhoodchef/nodekeeper/internal/logging"
	"github.com/yourneighborhoodchef/nodekeeper/internal/pacing"
)

type fakeSession struct {
	id  client.Identity
	err error

	mu     sync.Mutex
	tokens []string
}

func (f *fakeSession) Establish(ctx context.Context, token string) (client.Identity, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.err != nil {
		return client.Identity{}, f.err
	}
	return f.id, nil
}

// scriptedPinger returns results[i] for the i-th call, then nil.
type scriptedPinger struct {
	results []error
	panicAt int

	mu       sync.Mutex
	calls    int
	ids      []client.Identity
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (p *scriptedPinger) Ping(_ context.Context, id client.Identity, _ string) error {
	if p.inFlight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	defer p.inFlight.Add(-1)

	p.mu.Lock()
	n := p.calls
	p.calls++
	p.ids = append(p.ids, id)
	p.mu.Unlock()

	if p.panicAt > 0 && n+1 == p.panicAt {
		panic("decoder exploded")
	}
	if n < len(p.results) {
		return p.results[n]
	}
	return nil
}

// stopAfter lets the worker through k-1 waits and cancels on the k-th, so
// exactly k heartbeat iterations run.
type stopAfter struct {
	k      int
	cancel context.CancelFunc
	waits  int
}

func (s *stopAfter) Wait(ctx context.Context) error {
	s.waits++
	if s.waits >= s.k {
		s.cancel()
	}
	return ctx.Err()
}

func newObservedLogger() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewWithCore(core), logs
}

func TestBootstrapFailureIsFatal(t *testing.T) {
	log, logs := newObservedLogger()
	sessErr := &client.SessionError{Err: client.ErrMissingData}
	pinger := &scriptedPinger{}

	w := New(Options{
		Token:     "T1",
		Session:   &fakeSession{err: sessErr},
		Heartbeat: pinger,
		Pacer:     pacing.NewInterval(time.Hour),
		Log:       log,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case err := <-done:
		var se *client.SessionError
		if !errors.As(err, &se) {
			t.Fatalf("Run = %v, want *SessionError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker with failed bootstrap did not terminate")
	}

	if w.State() != Terminated {
		t.Errorf("state = %v, want terminated", w.State())
	}
	if w.Attempts() != 0 || pinger.calls != 0 {
		t.Errorf("heartbeats attempted after failed bootstrap: %d", pinger.calls)
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("error logs = %d, want 1", n)
	}
	if logs.Len() != 1 {
		t.Errorf("total logs = %d, want 1: %v", logs.Len(), logs.All())
	}
}

func TestHeartbeatsCountRegardlessOfFailures(t *testing.T) {
	for _, k := range []int{1, 3, 7} {
		log, logs := newObservedLogger()
		ctx, cancel := context.WithCancel(context.Background())

		pinger := &scriptedPinger{results: []error{
			&client.HeartbeatError{StatusCode: 500, Err: client.ErrUnexpectedStatus},
			errors.New("read: connection reset"),
			nil,
			&client.HeartbeatError{StatusCode: 403, Err: client.ErrUnexpectedStatus},
		}}
		id := client.Identity{UID: "u-1", BrowserID: "b-1"}
		w := New(Options{
			Token:     "T1",
			Session:   &fakeSession{id: id},
			Heartbeat: pinger,
			Pacer:     &stopAfter{k: k, cancel: cancel},
			Log:       log,
		})

		err := w.Run(ctx)
		cancel()
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("k=%d: Run = %v", k, err)
		}
		if got := w.Attempts(); got != int64(k) {
			t.Errorf("k=%d: attempts = %d", k, got)
		}
		if pinger.calls != k {
			t.Errorf("k=%d: pinger calls = %d", k, pinger.calls)
		}
		for _, got := range pinger.ids {
			if got != id {
				t.Errorf("k=%d: ping used identity %+v", k, got)
			}
		}
		if n := logs.FilterMessage("connected to session").Len(); n != 1 {
			t.Errorf("k=%d: bootstrap logs = %d", k, n)
		}

		wantFail := 0
		for i := 0; i < k && i < len(pinger.results); i++ {
			if pinger.results[i] != nil {
				wantFail++
			}
		}
		if n := logs.FilterMessage("ping error").Len(); n != wantFail {
			t.Errorf("k=%d: error logs = %d, want %d", k, n, wantFail)
		}
		if n := logs.FilterMessage("ping sent").Len(); n != k-wantFail {
			t.Errorf("k=%d: success logs = %d, want %d", k, n, k-wantFail)
		}
		if w.State() != Stopped {
			t.Errorf("k=%d: state = %v", k, w.State())
		}
	}
}

func TestNon200DoesNotStopLoop(t *testing.T) {
	log, logs := newObservedLogger()
	ticks := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pinger := &scriptedPinger{results: []error{
		&client.HeartbeatError{StatusCode: 502, Err: client.ErrUnexpectedStatus},
	}}
	w := New(Options{
		Token:     "T1",
		Session:   &fakeSession{},
		Heartbeat: pinger,
		Pacer:     pacing.Ticks(ticks),
		Log:       log,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return w.Attempts() == 1 })
	if w.State() != Looping {
		t.Fatalf("state after failed ping = %v", w.State())
	}
	if logs.FilterMessage("ping sent").Len() != 0 {
		t.Fatal("failed ping produced a success log")
	}

	ticks <- struct{}{}
	waitFor(t, func() bool { return w.Attempts() == 2 })
	waitFor(t, func() bool { return logs.FilterMessage("ping sent").Len() == 1 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if pinger.overlap.Load() {
		t.Fatal("heartbeat sends overlapped")
	}
}

func TestPanickingPingIsContained(t *testing.T) {
	log, logs := newObservedLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pinger := &scriptedPinger{panicAt: 1}
	w := New(Options{
		Token:     "T1",
		Session:   &fakeSession{},
		Heartbeat: pinger,
		Pacer:     &stopAfter{k: 2, cancel: cancel},
		Log:       log,
	})
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if w.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", w.Attempts())
	}
	if logs.FilterMessage("ping error").Len() != 1 || logs.FilterMessage("ping sent").Len() != 1 {
		t.Fatalf("logs = %v", logs.All())
	}
}

func TestCancelDuringBootstrap(t *testing.T) {
	log, logs := newObservedLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(Options{
		Token:     "T1",
		Session:   &fakeSession{err: &client.SessionError{Err: context.Canceled}},
		Heartbeat: &scriptedPinger{},
		Pacer:     pacing.NewInterval(time.Hour),
		Log:       log,
	})
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if w.State() != Stopped {
		t.Fatalf("state = %v", w.State())
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 0 {
		t.Fatal("shutdown during bootstrap logged as error")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Bootstrapping: "bootstrapping",
		Looping:       "looping",
		Terminated:    "terminated",
		Stopped:       "stopped",
		State(9):      "State(9)",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
