// Package persistence groups the CRM stores the actions depend on.
package persistence

import (
	"context"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// Persistence is a backend implementing every store used by the built-in actions.
type Persistence interface {
	protocol.RecordStore
	protocol.ModuleStore
	protocol.PipelineStore
	protocol.StageHistory
	protocol.UserStore
	protocol.TagStore
	protocol.Notifier

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
