package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"AttendBot/internal/attendance"
	"AttendBot/internal/model"
)

// MemoryAttendanceStore 内存实现，语义与数据库实现一致（含唯一键约束），用于测试和本地运行
type MemoryAttendanceStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*model.AttendanceRecord
	byKey   map[string]int64
	now     func() time.Time
}

func NewMemoryAttendanceStore() *MemoryAttendanceStore {
	return &MemoryAttendanceStore{
		records: make(map[int64]*model.AttendanceRecord),
		byKey:   make(map[string]int64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ attendance.Store = (*MemoryAttendanceStore)(nil)

func memoryKey(userID, workDate string) string {
	return userID + "|" + workDate
}

func (m *MemoryAttendanceStore) FindByKey(_ context.Context, userID, workDate string) (*model.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byKey[memoryKey(userID, workDate)]
	if !ok {
		return nil, nil
	}
	return m.records[id].Clone(), nil
}

func (m *MemoryAttendanceStore) Create(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(rec.UserID, rec.WorkDate)
	if _, exists := m.byKey[key]; exists {
		return fmt.Errorf("%w: user %s on %s", attendance.ErrDuplicateKey, rec.UserID, rec.WorkDate)
	}

	m.nextID++
	now := m.now()
	rec.ID = m.nextID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = rec.Clone()
	m.byKey[key] = rec.ID
	return nil
}

func (m *MemoryAttendanceStore) Update(_ context.Context, id int64, patch attendance.RecordPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: id %d", attendance.ErrRecordNotFound, id)
	}
	patch.Apply(rec)
	rec.UpdatedAt = m.now()
	return nil
}

func (m *MemoryAttendanceStore) ListOpen(_ context.Context, workDate string) ([]*model.AttendanceRecord, error) {
	return m.filter(func(r *model.AttendanceRecord) bool {
		return r.WorkDate == workDate && r.IsOpen()
	}), nil
}

func (m *MemoryAttendanceStore) ListOpenBefore(_ context.Context, workDate string) ([]*model.AttendanceRecord, error) {
	return m.filter(func(r *model.AttendanceRecord) bool {
		return r.WorkDate < workDate && r.IsOpen()
	}), nil
}

func (m *MemoryAttendanceStore) ListByUserBetween(_ context.Context, userID, from, to string) ([]*model.AttendanceRecord, error) {
	return m.filter(func(r *model.AttendanceRecord) bool {
		return r.UserID == userID && r.WorkDate >= from && r.WorkDate <= to
	}), nil
}

// Put 直接写入一条记录（测试造数据用），覆盖同 key 的已有记录
func (m *MemoryAttendanceStore) Put(rec *model.AttendanceRecord) *model.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(rec.UserID, rec.WorkDate)
	if id, ok := m.byKey[key]; ok {
		rec.ID = id
	} else {
		m.nextID++
		rec.ID = m.nextID
	}
	m.records[rec.ID] = rec.Clone()
	m.byKey[key] = rec.ID
	return rec
}

// Len 记录总数
func (m *MemoryAttendanceStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// filter 结果按 (work_date, id) 排序
func (m *MemoryAttendanceStore) filter(keep func(*model.AttendanceRecord) bool) []*model.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.AttendanceRecord
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkDate != out[j].WorkDate {
			return out[i].WorkDate < out[j].WorkDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}
