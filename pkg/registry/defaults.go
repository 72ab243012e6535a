package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/assignuser"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/condition"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/createrecord"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/createtask"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/delay"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/deleterecord"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/movestage"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/sendemail"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/sendnotification"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/tags"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/updatefield"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/updaterecord"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/updaterelated"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/webhook"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/conditions"
	coordination "github.com/ChrisMoss87/vrtx-sub009/pkg/coordination/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
	"github.com/go-playground/validator/v10"
)

// Dependencies are the collaborators the built-in actions need. Optional
// fields fall back to in-process defaults.
type Dependencies struct {
	Records   protocol.RecordStore   `validate:"required"`
	Modules   protocol.ModuleStore   `validate:"required"`
	Pipelines protocol.PipelineStore `validate:"required"`
	Users     protocol.UserStore     `validate:"required"`
	Tags      protocol.TagStore      `validate:"required"`
	Email     protocol.EmailSender   `validate:"required"`
	Notifier  protocol.Notifier      `validate:"required"`

	// StageHistory is optional; without it stage moves are not audited.
	StageHistory protocol.StageHistory
	Locker       protocol.Locker
	Cache        protocol.Cache
	Conditions   protocol.ConditionEvaluator
	HTTPClient   protocol.HTTPDoer
	Wait         delay.WaitFunc
	Clock        func() time.Time
}

func (d *Dependencies) withDefaults(logger *slog.Logger) {
	if d.Clock == nil {
		d.Clock = time.Now
	}

	if d.Locker == nil {
		d.Locker = coordination.NewLocker()
	}

	if d.Cache == nil {
		d.Cache = coordination.NewCache()
	}

	if d.Conditions == nil {
		d.Conditions = conditions.NewEvaluator(logger, conditions.WithClock(d.Clock))
	}
}

// RegisterDefaultActions registers the fifteen built-in action types on r.
func RegisterDefaultActions(r *Registry, deps Dependencies) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(deps); err != nil {
		return fmt.Errorf("invalid action dependencies: %w", err)
	}

	deps.withDefaults(r.logger)

	resolver := values.NewResolver(values.WithClock(deps.Clock))

	r.Register(sendemail.Type, sendemail.NewAction(deps.Email, deps.Users))
	r.Register(createrecord.Type, createrecord.NewAction(deps.Records, deps.Modules, resolver))
	r.Register(updaterecord.Type, updaterecord.NewAction(deps.Records, resolver))
	r.Register(updatefield.Type, updatefield.NewAction(deps.Records, resolver))
	r.Register(deleterecord.Type, deleterecord.NewAction(deps.Records))
	r.Register(webhook.Type, webhook.NewAction(deps.HTTPClient))
	r.Register(assignuser.Type, assignuser.NewAction(deps.Records, deps.Users, deps.Locker, deps.Cache))
	r.Register(sendnotification.Type, sendnotification.NewAction(deps.Notifier))
	r.Register(delay.Type, delay.NewAction(deps.Wait))
	r.Register(movestage.Type, movestage.NewAction(deps.Records, deps.Pipelines, deps.StageHistory, deps.Clock))
	r.Register(tags.AddType, tags.NewAddAction(deps.Tags))
	r.Register(tags.RemoveType, tags.NewRemoveAction(deps.Tags))
	r.Register(createtask.Type, createtask.NewAction(deps.Records, deps.Modules, deps.Clock))
	r.Register(condition.Type, condition.NewAction(deps.Conditions))
	r.Register(updaterelated.Type, updaterelated.NewAction(deps.Records, deps.Modules, resolver))

	return nil
}

// NewDefaultRegistry returns a registry with the built-in actions registered.
func NewDefaultRegistry(logger *slog.Logger, deps Dependencies, opts ...Option) (*Registry, error) {
	r := NewRegistry(logger, opts...)

	if err := RegisterDefaultActions(r, deps); err != nil {
		return nil, err
	}

	return r, nil
}
