package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yourneighborhoodchef/nodekeeper/internal/client"
	"github.com/yourneighborhoodchef/nodekeeper/internal/logging"
	"github.com/yourneighborhoodchef/nodekeeper/internal/pacing"
)

type State int32

const (
	Bootstrapping State = iota
	Looping
	// Terminated follows a failed bootstrap. It is never retried.
	Terminated
	// Stopped follows context cancellation.
	Stopped
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Looping:
		return "looping"
	case Terminated:
		return "terminated"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type SessionEstablisher interface {
	Establish(ctx context.Context, token string) (client.Identity, error)
}

type Pinger interface {
	Ping(ctx context.Context, id client.Identity, token string) error
}

type Options struct {
	Token     string
	Session   SessionEstablisher
	Heartbeat Pinger
	Pacer     pacing.Pacer
	Log       *logging.Logger
}

// Worker keeps one account alive: one session bootstrap, then a heartbeat
// per pacer tick until its context ends.
type Worker struct {
	token     string
	session   SessionEstablisher
	heartbeat Pinger
	pacer     pacing.Pacer
	log       *logging.Logger

	state    atomic.Int32
	attempts atomic.Int64
	identity client.Identity
}

func New(opts Options) *Worker {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Worker{
		token:     opts.Token,
		session:   opts.Session,
		heartbeat: opts.Heartbeat,
		pacer:     opts.Pacer,
		log:       log,
	}
}

func (w *Worker) State() State { return State(w.state.Load()) }

// Attempts counts heartbeat sends, successful or not.
func (w *Worker) Attempts() int64 { return w.attempts.Load() }

// Run blocks for the worker's lifetime. It returns a *client.SessionError
// when bootstrap fails and ctx.Err() after cancellation; it never returns
// for any other reason.
func (w *Worker) Run(ctx context.Context) error {
	id, err := w.session.Establish(ctx, w.token)
	if err != nil {
		if ctx.Err() != nil {
			w.state.Store(int32(Stopped))
			w.log.Info("stopped before session was established")
			return ctx.Err()
		}
		w.state.Store(int32(Terminated))
		w.log.Error("connection error", zap.Error(err))
		return err
	}
	w.identity = id
	w.state.Store(int32(Looping))
	w.log.Info("connected to session", zap.String("uid", id.UID), zap.String("browser_id", id.BrowserID))

	for {
		if err := ctx.Err(); err != nil {
			return w.stop(err)
		}
		w.beat(ctx)
		if err := w.pacer.Wait(ctx); err != nil {
			return w.stop(err)
		}
	}
}

func (w *Worker) stop(err error) error {
	w.state.Store(int32(Stopped))
	w.log.Info("worker stopped", zap.Int64("pings", w.Attempts()))
	return err
}

// beat performs one heartbeat attempt and logs exactly one event for it.
// Nothing raised inside escapes to the loop.
func (w *Worker) beat(ctx context.Context) {
	w.attempts.Add(1)
	err := w.ping(ctx)
	switch {
	case err == nil:
		w.log.Success("ping sent")
	case ctx.Err() != nil:
		w.log.Info("ping interrupted by shutdown", zap.Error(err))
	default:
		w.log.Error("ping error", zap.Error(err))
	}
}

func (w *Worker) ping(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ping panicked: %v", r)
		}
	}()
	return w.heartbeat.Ping(ctx, w.identity, w.token)
}
