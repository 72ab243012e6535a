package protocol

import (
	"context"
	"net/http"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
)

// RecordStore persists module records.
type RecordStore interface {
	// FindRecord returns ErrRecordNotFound for unknown or deleted ids.
	FindRecord(ctx context.Context, id int64) (*models.Record, error)
	CreateRecord(ctx context.Context, moduleID int64, data map[string]any, createdBy *int64) (int64, error)
	// UpdateRecord merges fields into the record's data.
	UpdateRecord(ctx context.Context, id int64, fields map[string]any, updatedBy *int64) error
	DeleteRecord(ctx context.Context, id int64) error
	// FindRecordsByField returns records of moduleID whose field equals value
	// or, for list fields, contains it. Results are ordered by id.
	FindRecordsByField(ctx context.Context, moduleID int64, field string, value any) ([]*models.Record, error)
	// CountRecordsByField counts records of moduleID whose field equals value.
	CountRecordsByField(ctx context.Context, moduleID int64, field string, value any) (int, error)
}

// ModuleStore looks up record types.
type ModuleStore interface {
	FindModule(ctx context.Context, id int64) (*models.Module, error)
	FindModuleByAPIName(ctx context.Context, apiName string) (*models.Module, error)
}

// PipelineStore looks up pipelines and their stages.
type PipelineStore interface {
	FindPipeline(ctx context.Context, id int64) (*models.Pipeline, error)
	FindStage(ctx context.Context, pipelineID, stageID int64) (*models.Stage, error)
}

// StageHistory records stage transitions.
type StageHistory interface {
	RecordTransition(ctx context.Context, transition models.StageTransition) error
}

// UserStore looks up users and role membership.
type UserStore interface {
	FindUser(ctx context.Context, id int64) (*models.User, error)
	// ExpandRole returns the active members of a role ordered by id.
	ExpandRole(ctx context.Context, roleID int64) ([]int64, error)
}

// TagStore manages tags and their attachment to records.
type TagStore interface {
	FindTag(ctx context.Context, id int64) (*models.Tag, error)
	// FindTagByName matches case-insensitively and returns ErrTagNotFound on miss.
	FindTagByName(ctx context.Context, name string) (*models.Tag, error)
	CreateTag(ctx context.Context, tag models.Tag) (int64, error)
	RecordTags(ctx context.Context, recordID int64) ([]models.Tag, error)
	AttachTags(ctx context.Context, recordID int64, tagIDs []int64) error
	DetachTags(ctx context.Context, recordID int64, tagIDs []int64) error
}

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context) error

// Locker provides mutual exclusion across workers.
type Locker interface {
	// Acquire blocks up to wait for key and holds it for at most ttl.
	// It returns ErrLockNotAcquired when the wait elapses.
	Acquire(ctx context.Context, key string, wait, ttl time.Duration) (ReleaseFunc, error)
}

// Cache is a shared key-value store with expiry.
type Cache interface {
	// Get reports false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// EmailSender delivers outbound email.
type EmailSender interface {
	// Account resolves the sending account: accountID when given, else the
	// user's default, else any active account.
	Account(ctx context.Context, accountID, userID *int64) (*models.EmailAccount, error)
	Send(ctx context.Context, message *models.EmailMessage) (bool, error)
	// SendFromTemplate renders templateID with data into a message ready to Send.
	SendFromTemplate(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, data map[string]any, link models.RecordLink) (*models.EmailMessage, error)
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// ConditionEvaluator is a boolean predicate over the execution context.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, conditions any, execCtx models.ExecutionContext) bool
}

// HTTPDoer issues HTTP requests; *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
