package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"presence.service/internal/core/model"
)

// InMemoryRepository keeps records in process memory. It mirrors the
// Postgres constraints so it can stand in for the database in local runs and
// tests; all writes are serialized by one mutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]model.AttendanceRecord
	byDay   map[string]string // employeeID|day -> record id
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]model.AttendanceRecord),
		byDay:   make(map[string]string),
		now:     time.Now,
	}
}

func naturalKey(employeeID string, day time.Time) string {
	return employeeID + "|" + dayKey(day)
}

func (s *InMemoryRepository) FindByEmployeeAndDay(_ context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDay[naturalKey(employeeID, day)]
	if !ok {
		return nil, nil
	}
	rec := s.records[id]
	return &rec, nil
}

func (s *InMemoryRepository) FindByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *InMemoryRepository) Insert(_ context.Context, record model.AttendanceRecord) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	key := naturalKey(record.EmployeeID, record.Day)
	if _, exists := s.byDay[key]; exists {
		return nil, ErrDuplicate
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record
	s.byDay[key] = record.ID
	return &record, nil
}

func (s *InMemoryRepository) Update(_ context.Context, id string, patch model.RecordPatch) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	oldKey := naturalKey(current.EmployeeID, current.Day)
	newKey := naturalKey(updated.EmployeeID, updated.Day)
	if newKey != oldKey {
		if _, taken := s.byDay[newKey]; taken {
			return nil, ErrDuplicate
		}
		delete(s.byDay, oldKey)
		s.byDay[newKey] = id
	}
	updated.UpdatedAt = s.now()
	s.records[id] = updated
	return &updated, nil
}

func (s *InMemoryRepository) MarkCheckIn(_ context.Context, id string, at time.Time) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.CheckInAt != nil || rec.Status == model.StatusAbsent {
		return nil, ErrConflict
	}
	rec.CheckInAt = &at
	rec.Status = model.StatusPresent
	rec.UpdatedAt = s.now()
	s.records[id] = rec
	return &rec, nil
}

func (s *InMemoryRepository) MarkCheckOut(_ context.Context, id string, at time.Time) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.CheckInAt == nil || rec.CheckOutAt != nil {
		return nil, ErrConflict
	}
	rec.CheckOutAt = &at
	rec.UpdatedAt = s.now()
	s.records[id] = rec
	return &rec, nil
}

func (s *InMemoryRepository) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	delete(s.byDay, naturalKey(rec.EmployeeID, rec.Day))
	return nil
}

func (s *InMemoryRepository) ListAll(_ context.Context) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AttendanceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryRepository) ListByEmployee(_ context.Context, employeeID string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.AttendanceRecord{}
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(records []model.AttendanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Day.Equal(records[j].Day) {
			return records[i].Day.After(records[j].Day)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
