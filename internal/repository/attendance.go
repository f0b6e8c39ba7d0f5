package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"AttendBot/internal/attendance"
	"AttendBot/internal/model"
)

// AttendanceRepository 基于 gorm 的考勤记录存储，(user_id, work_date) 唯一索引兜底并发创建
type AttendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

var _ attendance.Store = (*AttendanceRepository)(nil)

func (r *AttendanceRepository) FindByKey(ctx context.Context, userID, workDate string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	// 写路径必须读主库，避免副本延迟导致重复创建
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("user_id = ? AND work_date = ?", userID, workDate).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &rec, nil
}

func (r *AttendanceRepository) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s on %s", attendance.ErrDuplicateKey, rec.UserID, rec.WorkDate)
		}
		return storeError(err)
	}
	return nil
}

func (r *AttendanceRepository) Update(ctx context.Context, id int64, patch attendance.RecordPatch) error {
	updates := map[string]interface{}{}
	if patch.CheckInAt != nil {
		updates["check_in_at"] = patch.CheckInAt.UTC()
	}
	if patch.ClearCheckOut {
		updates["check_out_at"] = gorm.Expr("NULL")
	}
	if patch.CheckOutAt != nil {
		updates["check_out_at"] = patch.CheckOutAt.UTC()
	}
	if patch.Status != "" {
		updates["status"] = string(patch.Status)
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", attendance.ErrRecordNotFound, id)
	}
	return nil
}

func (r *AttendanceRepository) ListOpen(ctx context.Context, workDate string) ([]*model.AttendanceRecord, error) {
	var records []*model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("work_date = ? AND status = ?", workDate, model.AttendanceStatusCheckedIn).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func (r *AttendanceRepository) ListOpenBefore(ctx context.Context, workDate string) ([]*model.AttendanceRecord, error) {
	var records []*model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("work_date < ? AND status = ?", workDate, model.AttendanceStatusCheckedIn).
		Order("work_date, id").
		Find(&records).Error
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func (r *AttendanceRepository) ListByUserBetween(ctx context.Context, userID, from, to string) ([]*model.AttendanceRecord, error) {
	var records []*model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND work_date >= ? AND work_date <= ?", userID, from, to).
		Order("work_date").
		Find(&records).Error
	if err != nil {
		return nil, storeError(err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
}
