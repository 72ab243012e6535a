// Package memory provides an in-process implementation of the CRM stores.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

var _ persistence.Persistence = (*Store)(nil)

// Store keeps every entity in maps guarded by a single mutex. Records are
// copied on the way in and out so callers never share data maps.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	modules       map[int64]models.Module
	records       map[int64]*models.Record
	pipelines     map[int64]models.Pipeline
	stages        map[int64]models.Stage
	transitions   []models.StageTransition
	users         map[int64]models.User
	roles         map[int64][]int64
	tags          map[int64]models.Tag
	recordTags    map[int64][]int64
	notifications []models.Notification
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		modules:    make(map[int64]models.Module),
		records:    make(map[int64]*models.Record),
		pipelines:  make(map[int64]models.Pipeline),
		stages:     make(map[int64]models.Stage),
		users:      make(map[int64]models.User),
		roles:      make(map[int64][]int64),
		tags:       make(map[int64]models.Tag),
		recordTags: make(map[int64][]int64),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) nextID() int64 {
	s.seq++

	return s.seq
}

// AddModule stores module, assigning an id when it has none.
func (s *Store) AddModule(module models.Module) models.Module {
	s.mu.Lock()
	defer s.mu.Unlock()

	if module.ID == 0 {
		module.ID = s.nextID()
	}

	s.modules[module.ID] = module

	return module
}

func (s *Store) AddPipeline(pipeline models.Pipeline) models.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pipeline.ID == 0 {
		pipeline.ID = s.nextID()
	}

	s.pipelines[pipeline.ID] = pipeline

	return pipeline
}

func (s *Store) AddStage(stage models.Stage) models.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stage.ID == 0 {
		stage.ID = s.nextID()
	}

	s.stages[stage.ID] = stage

	return stage
}

func (s *Store) AddUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.nextID()
	}

	s.users[user.ID] = user

	return user
}

// AddRole sets the members of roleID.
func (s *Store) AddRole(roleID int64, userIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[roleID] = slices.Clone(userIDs)
}

// Transitions returns the recorded stage transitions in order.
func (s *Store) Transitions() []models.StageTransition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.transitions)
}

// Notifications returns the delivered notifications in order.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.notifications)
}

// Tags returns every tag ordered by id.
func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Tag, 0, len(s.tags))
	for _, id := range slices.Sorted(maps.Keys(s.tags)) {
		out = append(out, s.tags[id])
	}

	return out
}

func (s *Store) FindRecord(_ context.Context, id int64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, persistence.NewRecordError("FindRecord", id, protocol.ErrRecordNotFound)
	}

	return cloneRecord(record), nil
}

func (s *Store) CreateRecord(_ context.Context, moduleID int64, data map[string]any, createdBy *int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.modules[moduleID]; !ok {
		return 0, persistence.NewRecordError("CreateRecord", 0, protocol.ErrModuleNotFound)
	}

	now := s.now()
	record := &models.Record{
		ID:        s.nextID(),
		ModuleID:  moduleID,
		Data:      cloneData(data),
		CreatedBy: clonePtr(createdBy),
		UpdatedBy: clonePtr(createdBy),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.records[record.ID] = record

	return record.ID, nil
}

func (s *Store) UpdateRecord(_ context.Context, id int64, fields map[string]any, updatedBy *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return persistence.NewRecordError("UpdateRecord", id, protocol.ErrRecordNotFound)
	}

	if record.Data == nil {
		record.Data = map[string]any{}
	}

	maps.Copy(record.Data, cloneData(fields))
	record.UpdatedAt = s.now()

	if updatedBy != nil {
		record.UpdatedBy = clonePtr(updatedBy)
	}

	return nil
}

func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return persistence.NewRecordError("DeleteRecord", id, protocol.ErrRecordNotFound)
	}

	delete(s.records, id)
	delete(s.recordTags, id)

	return nil
}

func (s *Store) FindRecordsByField(_ context.Context, moduleID int64, field string, value any) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0)

	for _, id := range slices.Sorted(maps.Keys(s.records)) {
		record := s.records[id]
		if record.ModuleID != moduleID {
			continue
		}

		if fieldMatches(record.Data[field], value) {
			out = append(out, cloneRecord(record))
		}
	}

	return out, nil
}

func (s *Store) CountRecordsByField(ctx context.Context, moduleID int64, field string, value any) (int, error) {
	records, err := s.FindRecordsByField(ctx, moduleID, field, value)
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

func (s *Store) FindModule(_ context.Context, id int64) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	module, ok := s.modules[id]
	if !ok {
		return nil, protocol.ErrModuleNotFound
	}

	return &module, nil
}

func (s *Store) FindModuleByAPIName(_ context.Context, apiName string) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range slices.Sorted(maps.Keys(s.modules)) {
		if module := s.modules[id]; module.APIName == apiName {
			return &module, nil
		}
	}

	return nil, protocol.ErrModuleNotFound
}

func (s *Store) FindPipeline(_ context.Context, id int64) (*models.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipeline, ok := s.pipelines[id]
	if !ok {
		return nil, protocol.ErrPipelineNotFound
	}

	return &pipeline, nil
}

func (s *Store) FindStage(_ context.Context, pipelineID, stageID int64) (*models.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stage, ok := s.stages[stageID]
	if !ok || stage.PipelineID != pipelineID {
		return nil, protocol.ErrStageNotFound
	}

	return &stage, nil
}

func (s *Store) RecordTransition(_ context.Context, transition models.StageTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if transition.ChangedAt.IsZero() {
		transition.ChangedAt = s.now()
	}

	s.transitions = append(s.transitions, transition)

	return nil
}

func (s *Store) FindUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, protocol.ErrUserNotFound
	}

	return &user, nil
}

func (s *Store) ExpandRole(_ context.Context, roleID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(s.roles[roleID]))

	for _, userID := range s.roles[roleID] {
		if user, ok := s.users[userID]; ok && user.Active {
			out = append(out, userID)
		}
	}

	slices.Sort(out)

	return out, nil
}

func (s *Store) FindTag(_ context.Context, id int64) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, protocol.ErrTagNotFound
	}

	return &tag, nil
}

func (s *Store) FindTagByName(_ context.Context, name string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range slices.Sorted(maps.Keys(s.tags)) {
		if tag := s.tags[id]; strings.EqualFold(tag.Name, name) {
			return &tag, nil
		}
	}

	return nil, protocol.ErrTagNotFound
}

func (s *Store) CreateTag(_ context.Context, tag models.Tag) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag.ID = s.nextID()
	s.tags[tag.ID] = tag

	return tag.ID, nil
}

func (s *Store) RecordTags(_ context.Context, recordID int64) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Tag, 0, len(s.recordTags[recordID]))

	for _, tagID := range s.recordTags[recordID] {
		if tag, ok := s.tags[tagID]; ok {
			out = append(out, tag)
		}
	}

	return out, nil
}

func (s *Store) AttachTags(_ context.Context, recordID int64, tagIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID]; !ok {
		return persistence.NewRecordError("AttachTags", recordID, protocol.ErrRecordNotFound)
	}

	attached := s.recordTags[recordID]

	for _, tagID := range tagIDs {
		if _, ok := s.tags[tagID]; !ok {
			return protocol.ErrTagNotFound
		}

		if !slices.Contains(attached, tagID) {
			attached = append(attached, tagID)
		}
	}

	s.recordTags[recordID] = attached

	return nil
}

func (s *Store) DetachTags(_ context.Context, recordID int64, tagIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordTags[recordID] = slices.DeleteFunc(s.recordTags[recordID], func(id int64) bool {
		return slices.Contains(tagIDs, id)
	})

	return nil
}

func (s *Store) Notify(_ context.Context, notification models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[notification.UserID]; !ok {
		return protocol.ErrUserNotFound
	}

	s.notifications = append(s.notifications, notification)

	return nil
}

func (s *Store) HealthCheck(context.Context) error {
	return nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

// fieldMatches compares loosely so that 7, int64(7) and "7" are equal. List
// values match when any element matches.
func fieldMatches(stored, want any) bool {
	if list, ok := models.ValueOf(stored).List(); ok {
		for _, item := range list {
			if scalarEqual(item, want) {
				return true
			}
		}

		return false
	}

	return scalarEqual(stored, want)
}

func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	sa, okA := models.ValueOf(a).String()
	sb, okB := models.ValueOf(b).String()

	return okA && okB && sa == sb
}

func cloneRecord(r *models.Record) *models.Record {
	out := *r
	out.Data = cloneData(r.Data)
	out.CreatedBy = clonePtr(r.CreatedBy)
	out.UpdatedBy = clonePtr(r.UpdatedBy)

	return &out
}

// cloneData copies the top level and nested lists/maps.
func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}

func clonePtr(p *int64) *int64 {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
