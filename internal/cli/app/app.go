// Package app wires configuration into the service clients and the submission lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"

	"algocrack/internal/auth"
	"algocrack/internal/cli/command"
	"algocrack/internal/client/config"
	"algocrack/internal/client/state"
	"algocrack/internal/client/transport"
	"algocrack/internal/common/cache"
	"algocrack/internal/execution"
	"algocrack/internal/problem"
	"algocrack/internal/profile"
	"algocrack/internal/submission/api"
	"algocrack/internal/submission/lifecycle"
	"algocrack/internal/submission/realtime"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// App holds every client the CLI uses.
type App struct {
	Config      config.Config
	Tokens      *state.TokenStore
	Navigator   *Navigator
	Clients     map[command.Target]*transport.Client
	Auth        *auth.Service
	Catalog     *problem.Catalog
	Submissions *api.Client
	Execution   *execution.Client
	Profile     *profile.Client
	Realtime    *realtime.Manager
	Actions     *lifecycle.Actions
	// Legacy follows runs queued on the execution engine directly.
	Legacy *lifecycle.Coordinator

	cache *cache.RedisCache
}

// Option adjusts wiring.
type Option func(*options)

type options struct {
	tokens    *state.TokenStore
	transport realtime.Transport
}

// WithTokenStore uses st instead of opening the configured state file.
func WithTokenStore(st *state.TokenStore) Option {
	return func(o *options) { o.tokens = st }
}

// WithRealtimeTransport replaces the transport chosen by the realtime mode.
func WithRealtimeTransport(t realtime.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New builds the application from cfg. The caller owns Close.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Navigator: NewNavigator(), Clients: map[command.Target]*transport.Client{}}
	a.Tokens = o.tokens
	if a.Tokens == nil {
		tokens, err := state.Open(cfg.TokenStatePath)
		if err != nil {
			return nil, err
		}
		a.Tokens = tokens
	}

	bases := map[command.Target]string{
		command.TargetProblem:    cfg.Services.Problem,
		command.TargetSubmission: cfg.Services.Submission,
		command.TargetExecution:  cfg.Services.Execution,
		command.TargetUser:       cfg.Services.Gateway,
	}
	for target, base := range bases {
		a.Clients[target] = transport.New(transport.Config{
			BaseURL:    base,
			Timeout:    cfg.Timeout,
			Tokens:     a.Tokens,
			SignInPath: cfg.SignInPath,
			Location:   a.Navigator.Location,
			Redirect:   a.Navigator.Redirect,
		})
	}

	a.Auth = auth.NewService(a.Clients[command.TargetUser], a.Tokens)
	a.Submissions = api.New(a.Clients[command.TargetSubmission])
	a.Execution = execution.New(a.Clients[command.TargetExecution])
	a.Profile = profile.New(a.Clients[command.TargetUser])

	var catalogOpts []problem.Option
	if cfg.Cache.RedisAddr != "" {
		rcfg := cache.DefaultRedisConfig()
		rcfg.Addr = cfg.Cache.RedisAddr
		rcfg.Password = cfg.Cache.Password
		rcfg.DB = cfg.Cache.DB
		rc, err := cache.NewRedisCacheWithConfig(rcfg)
		if err != nil {
			logger.Warn(ctx, "problem cache disabled", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			a.cache = rc
			catalogOpts = append(catalogOpts, problem.WithCache(rc, cfg.Cache.TTL))
		}
	}
	a.Catalog = problem.NewCatalog(a.Clients[command.TargetProblem], catalogOpts...)

	rt := o.transport
	if rt == nil {
		var err error
		rt, err = realtimeTransport(cfg, a.Tokens)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	coordOpts := []lifecycle.CoordinatorOption{lifecycle.WithFallbackAfter(cfg.Realtime.FallbackAfter)}
	if rt != nil {
		a.Realtime = realtime.NewManager(rt, realtime.WithReconnectDelay(cfg.Realtime.ReconnectDelay))
		coordOpts = append(coordOpts, lifecycle.WithRealtime(lifecycle.NewRealtimeSource(a.Realtime)))
	}
	poll := lifecycle.NewPollSource(a.Submissions, cfg.Poll.Submit.Attempts, cfg.Poll.Submit.Interval)
	a.Actions = lifecycle.NewActions(a.Submissions, lifecycle.NewCoordinator(poll, coordOpts...))
	a.Legacy = lifecycle.NewCoordinator(lifecycle.NewPollSource(a.Execution, cfg.Poll.Run.Attempts, cfg.Poll.Run.Interval))

	logger.Debug(ctx, "app ready",
		zap.String("gateway", cfg.Services.Gateway),
		zap.String("realtime", cfg.Realtime.Mode),
		zap.Bool("cache", a.cache != nil),
	)
	return a, nil
}

func realtimeTransport(cfg config.Config, tokens *state.TokenStore) (realtime.Transport, error) {
	rt := cfg.Realtime
	switch strings.ToLower(rt.Mode) {
	case config.RealtimeSTOMP:
		return realtime.NewSTOMPTransport(realtime.STOMPConfig{
			URL:               rt.URL,
			DestinationPrefix: rt.DestinationPrefix,
			HeartbeatOutgoing: rt.HeartbeatOutgoing,
			HeartbeatIncoming: rt.HeartbeatIncoming,
			Token:             tokens.Token,
		}), nil
	case config.RealtimeKafka:
		kt, err := realtime.NewKafkaTransport(realtime.KafkaConfig{Brokers: rt.Kafka.Brokers, Topic: rt.Kafka.Topic})
		if err != nil {
			return nil, err
		}
		return kt, nil
	case config.RealtimeOff, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown realtime mode %q", rt.Mode)
	}
}

// Client returns the transport for target.
func (a *App) Client(target command.Target) *transport.Client {
	return a.Clients[target]
}

// Close stops realtime subscriptions and releases the cache connection.
func (a *App) Close() error {
	if a.Realtime != nil {
		a.Realtime.StopAll()
	}
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
