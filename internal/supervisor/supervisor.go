package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yourneighborhoodchef/nodekeeper/internal/client"
	"github.com/yourneighborhoodchef/nodekeeper/internal/config"
	"github.com/yourneighborhoodchef/nodekeeper/internal/logging"
	"github.com/yourneighborhoodchef/nodekeeper/internal/pacing"
	"github.com/yourneighborhoodchef/nodekeeper/internal/proxy"
	"github.com/yourneighborhoodchef/nodekeeper/internal/worker"
)

type Options struct {
	Config       config.Config
	Log          *logging.Logger
	NewTransport client.Factory
	// NewPacer defaults to a fixed wait of Config.RetryInterval.
	NewPacer func() pacing.Pacer
}

// Summary describes how the workers of one Run ended.
type Summary struct {
	Started    int
	Terminated int
	Stopped    int
}

type Supervisor struct {
	cfg          config.Config
	log          *logging.Logger
	newTransport client.Factory
	newPacer     func() pacing.Pacer
}

func New(opts Options) *Supervisor {
	s := &Supervisor{
		cfg:          opts.Config,
		log:          opts.Log,
		newTransport: opts.NewTransport,
		newPacer:     opts.NewPacer,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.newPacer == nil {
		interval := s.cfg.RetryInterval
		s.newPacer = func() pacing.Pacer { return pacing.NewInterval(interval) }
	}
	return s
}

// Run starts one worker per token and blocks until every worker has
// returned. Token i is bound to proxies[i mod len(proxies)].
func (s *Supervisor) Run(ctx context.Context, tokens, proxies []string) Summary {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sum Summary
	)

	for i, token := range tokens {
		log := s.log.With(zap.Int("worker", i+1), zap.String("token", logging.MaskToken(token)))
		w := s.build(log, i, token, proxies)
		sum.Started++

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Run(ctx)

			mu.Lock()
			defer mu.Unlock()
			var se *client.SessionError
			switch {
			case errors.As(err, &se):
				sum.Terminated++
			default:
				sum.Stopped++
			}
		}()
	}

	wg.Wait()
	return sum
}

func (s *Supervisor) build(log *logging.Logger, i int, token string, proxies []string) *worker.Worker {
	binding := s.bindProxy(log, i, proxies)
	if binding != nil {
		log = log.With(zap.String("proxy", binding.Addr()))
	}

	tr, err := s.newTransport(binding)
	if err != nil {
		tr = brokenTransport{err: fmt.Errorf("build transport: %w", err)}
	}

	return worker.New(worker.Options{
		Token:     token,
		Session:   client.NewSessionClient(s.cfg.SessionURL, tr),
		Heartbeat: client.NewHeartbeatClient(s.cfg.PingURL, s.cfg.ProtocolVersion, tr),
		Pacer:     s.newPacer(),
		Log:       log,
	})
}

func (s *Supervisor) bindProxy(log *logging.Logger, i int, proxies []string) *proxy.Binding {
	raw, ok := proxy.Assign(proxies, i)
	if !ok {
		return nil
	}
	b, err := proxy.Parse(raw)
	if err != nil {
		log.Info("proxy line ignored, running without proxy", zap.Error(err))
		return nil
	}
	log.Info(fmt.Sprintf("using proxy for token %d", i+1), zap.String("proxy", b.Addr()))
	return b
}

// brokenTransport fails every request, so a worker whose transport could
// not be built fails its bootstrap like any other unreachable session.
type brokenTransport struct {
	err error
}

func (b brokenTransport) Post(context.Context, string, string, []byte) (*client.Response, error) {
	return nil, b.err
}
