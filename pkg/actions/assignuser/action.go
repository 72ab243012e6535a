// Package assignuser resolves a user by one of several strategies and writes
// it into a record's owner field.
package assignuser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const Type = "assign_user"

// Assignment modes.
const (
	ModeSpecificUser = "specific_user"
	ModeRecordOwner  = "record_owner"
	ModeFieldValue   = "field_value"
	ModeRoundRobin   = "round_robin"
	ModeRoleBased    = "role_based"
)

// Role-based selection strategies.
const (
	StrategyLeastRecords = "least_records"
	StrategyRandom       = "random"
)

// DefaultTargetField receives the assigned user when target_field is unset.
const DefaultTargetField = "owner_id"

var (
	// ErrNoCandidates is returned when a mode has nobody to pick from.
	ErrNoCandidates = errors.New("no assignable users")
	// ErrUnassignable is returned when a mode resolves no user.
	ErrUnassignable = errors.New("unable to resolve user to assign")
)

type Action struct {
	records protocol.RecordStore
	users   protocol.UserStore
	locker  protocol.Locker
	cache   protocol.Cache
	intn    func(n int) int
}

type Option func(*Action)

// WithRandom replaces the index source used by the random strategy.
func WithRandom(intn func(n int) int) Option {
	return func(a *Action) {
		a.intn = intn
	}
}

func NewAction(records protocol.RecordStore, users protocol.UserStore, locker protocol.Locker, cache protocol.Cache, opts ...Option) *Action {
	a := &Action{
		records: records,
		users:   users,
		locker:  locker,
		cache:   cache,
		intn:    rand.IntN,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	record, err := a.records.FindRecord(ctx, recordID)
	if err != nil {
		return nil, persistence.NewRecordError("find", recordID, err)
	}

	targetField := config.StringOr("target_field", DefaultTargetField)
	mode := config.StringOr("mode", ModeSpecificUser)

	userID, err := a.resolve(ctx, mode, config, record, targetField, logger)
	if err != nil {
		return nil, fmt.Errorf("assign user (%s): %w", mode, err)
	}

	previous := record.Data[targetField]

	if err := a.records.UpdateRecord(ctx, recordID, map[string]any{targetField: userID}, execCtx.TriggeredByPtr()); err != nil {
		return nil, persistence.NewRecordError("update", recordID, err)
	}

	logger.InfoContext(ctx, "workflow assigned user",
		"target_record_id", recordID,
		"mode", mode,
		"user_id", userID,
		"previous", previous)

	return models.Output{
		"assigned":       true,
		"record_id":      recordID,
		"mode":           mode,
		"target_field":   targetField,
		"user_id":        userID,
		"previous_value": previous,
	}, nil
}

func (a *Action) resolve(ctx context.Context, mode string, config models.Config, record *models.Record, targetField string, logger *slog.Logger) (int64, error) {
	switch mode {
	case ModeSpecificUser:
		id, ok := config.Int64("user_id")
		if !ok {
			return 0, ErrUnassignable
		}

		return id, nil
	case ModeRecordOwner:
		id, ok := models.ValueOf(record.Data[targetField]).Int()
		if !ok {
			return 0, ErrUnassignable
		}

		return id, nil
	case ModeFieldValue:
		id, ok := models.ValueOf(record.Data[config.String("source_field")]).Int()
		if !ok {
			return 0, ErrUnassignable
		}

		return id, nil
	case ModeRoundRobin:
		candidates, err := a.candidates(ctx, config)
		if err != nil {
			return 0, err
		}

		return a.nextInRotation(ctx, record.ModuleID, candidates, logger)
	case ModeRoleBased:
		roleID, ok := config.Int64("role_id")
		if !ok {
			return 0, fmt.Errorf("%w: role_id is required", protocol.ErrInvalidConfig)
		}

		members, err := a.users.ExpandRole(ctx, roleID)
		if err != nil {
			return 0, fmt.Errorf("expand role %d: %w", roleID, err)
		}

		if len(members) == 0 {
			return 0, ErrNoCandidates
		}

		if config.StringOr("strategy", StrategyLeastRecords) == StrategyRandom {
			return members[a.intn(len(members))], nil
		}

		return a.leastLoaded(ctx, record.ModuleID, targetField, members)
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrUnassignable, mode)
	}
}

// candidates returns the explicit user_ids list, or the active members of
// role_id when no list is configured.
func (a *Action) candidates(ctx context.Context, config models.Config) ([]int64, error) {
	ids := actionutil.Unique(config.Int64s("user_ids"))

	if len(ids) == 0 {
		if roleID, ok := config.Int64("role_id"); ok {
			members, err := a.users.ExpandRole(ctx, roleID)
			if err != nil {
				return nil, fmt.Errorf("expand role %d: %w", roleID, err)
			}

			ids = members
		}
	}

	if len(ids) == 0 {
		return nil, ErrNoCandidates
	}

	return ids, nil
}

// leastLoaded picks the candidate owning the fewest records of the module.
// Ties go to the earlier candidate.
func (a *Action) leastLoaded(ctx context.Context, moduleID int64, ownerField string, candidates []int64) (int64, error) {
	best, bestCount := int64(0), -1

	for _, id := range candidates {
		count, err := a.records.CountRecordsByField(ctx, moduleID, ownerField, id)
		if err != nil {
			return 0, fmt.Errorf("count records owned by %d: %w", id, err)
		}

		if bestCount < 0 || count < bestCount {
			best, bestCount = id, count
		}
	}

	return best, nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	switch config.StringOr("mode", ModeSpecificUser) {
	case ModeSpecificUser:
		if _, ok := config.Int64("user_id"); !ok {
			errs["user_id"] = "User is required"
		}
	case ModeRecordOwner:
	case ModeFieldValue:
		if config.String("source_field") == "" {
			errs["source_field"] = "Source field is required"
		}
	case ModeRoundRobin:
		if _, ok := config.Int64("role_id"); !ok && len(config.Int64s("user_ids")) == 0 {
			errs["user_ids"] = "Select users or a role to rotate through"
		}
	case ModeRoleBased:
		if _, ok := config.Int64("role_id"); !ok {
			errs["role_id"] = "Role is required"
		}

		if s := config.StringOr("strategy", StrategyLeastRecords); s != StrategyLeastRecords && s != StrategyRandom {
			errs["strategy"] = "Unknown selection strategy"
		}
	default:
		errs["mode"] = "Unknown assignment mode"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "mode", Label: "Assignment Method", Type: models.FieldTypeSelect, Required: true, Default: ModeSpecificUser, Options: []models.Option{
			{Value: ModeSpecificUser, Label: "Specific User"},
			{Value: ModeRecordOwner, Label: "Keep Record Owner"},
			{Value: ModeFieldValue, Label: "User From Field"},
			{Value: ModeRoundRobin, Label: "Round Robin"},
			{Value: ModeRoleBased, Label: "By Role"},
		}},
		{Name: "user_id", Label: "User", Type: models.FieldTypeUserSelect, ShowWhen: map[string]any{"mode": ModeSpecificUser}},
		{Name: "source_field", Label: "Source Field", Type: models.FieldTypeFieldSelect, ShowWhen: map[string]any{"mode": ModeFieldValue}},
		{Name: "user_ids", Label: "Users", Type: models.FieldTypeUserMultiSelect, ShowWhen: map[string]any{"mode": ModeRoundRobin}},
		{Name: "role_id", Label: "Role", Type: models.FieldTypeRoleSelect, ShowWhen: map[string]any{"mode": []string{ModeRoundRobin, ModeRoleBased}}},
		{Name: "strategy", Label: "Selection", Type: models.FieldTypeSelect, Default: StrategyLeastRecords, ShowWhen: map[string]any{"mode": ModeRoleBased}, Options: []models.Option{
			{Value: StrategyLeastRecords, Label: "Fewest Records"},
			{Value: StrategyRandom, Label: "Random"},
		}},
		{Name: "target_field", Label: "Assign To Field", Type: models.FieldTypeFieldSelect, Default: DefaultTargetField},
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
	}}
}
