package cmd

import (
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/eventbus"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

// RegistryConfig holds the collaborators the command wires into the registry.
type RegistryConfig struct {
	Persistence  persistence.Persistence
	Coordination *Coordination
	Email        protocol.EmailSender
	EventBus     eventbus.EventPublisher
	Tracer       trace.Tracer
}

func NewRegistry(logger *slog.Logger, cfg RegistryConfig) (*registry.Registry, error) {
	var opts []registry.Option

	if cfg.EventBus != nil {
		opts = append(opts, registry.WithEventPublisher(cfg.EventBus))
	}

	if cfg.Tracer != nil {
		opts = append(opts, registry.WithTracer(cfg.Tracer))
	}

	deps := registry.Dependencies{
		Records:      cfg.Persistence,
		Modules:      cfg.Persistence,
		Pipelines:    cfg.Persistence,
		StageHistory: cfg.Persistence,
		Users:        cfg.Persistence,
		Tags:         cfg.Persistence,
		Notifier:     cfg.Persistence,
		Email:        cfg.Email,
	}

	if cfg.Coordination != nil {
		deps.Locker = cfg.Coordination.Locker
		deps.Cache = cfg.Coordination.Cache
	}

	return registry.NewDefaultRegistry(logger, deps, opts...)
}
