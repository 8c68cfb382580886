package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// stack is the wiring shared by every command.
type stack struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	audit    bool
}

func newStack(cmd *cobra.Command) (*stack, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	levelName := cfg.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		levelName = flag
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	s := &stack{cfg: cfg, logger: logging.New(level)}
	s.audit, _ = cmd.Flags().GetBool("audit")

	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = observability.NewMetrics(cfg.Metrics.Namespace, s.registry)
	}
	return s, nil
}

// editor builds the editor of a document with the configured options and hooks.
func (s *stack) editor(document string) *arbor.Editor {
	var hooks domain.LifecycleHooks
	if s.metrics != nil {
		hooks = hooks.Merge(s.metrics.Hooks(document))
	}
	if s.audit {
		hooks = hooks.Merge(observability.AuditHooks(s.logger.With("document", document)))
	}
	return arbor.New(
		arbor.WithName(document),
		arbor.WithConfig(s.cfg),
		arbor.WithLogger(s.logger),
		arbor.WithLifecycleHooks(hooks),
	)
}

// sessions creates the document manager used by the servers. Documents are locked
// through Redis when locks.redis_addr is configured.
func (s *stack) sessions(opts ...session.Option) *session.Manager {
	if addr := s.cfg.Locks.RedisAddr; addr != "" {
		client := backend.NewClient(&backend.Options{Addr: addr})
		opts = append(opts,
			session.WithLocker(redis.NewLocker(client, s.cfg.Locks.Prefix)),
			session.WithLockTTL(s.cfg.Locks.TTL),
		)
		s.logger.Info("Using Redis document locks", "addr", addr)
	}
	opts = append([]session.Option{
		session.WithLogger(s.logger),
		session.WithOnClose(func(document string) {
			if s.metrics != nil {
				s.metrics.Forget(document)
			}
		}),
	}, opts...)
	return session.NewManager(func(document string) ports.Editor {
		return s.editor(document)
	}, opts...)
}
