package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"AttendBot/internal/clock"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
)

var _ policy.HolidayCalendar = (*HolidayRepository)(nil)

// HolidayRepository 节假日日历
type HolidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// IsHoliday 存在 is_active 的条目即为节假日
func (r *HolidayRepository) IsHoliday(ctx context.Context, date clock.LocalDate) (bool, error) {
	var h model.Holiday
	err := r.db.WithContext(ctx).
		Select("id").
		Where("date = ? AND is_active = ?", date.String(), true).
		Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query holiday %s: %w", date, err)
	}
	return true, nil
}

// ListBetween [from, to] 内的生效节假日
func (r *HolidayRepository) ListBetween(ctx context.Context, from, to clock.LocalDate) ([]*model.Holiday, error) {
	var holidays []*model.Holiday
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ? AND is_active = ?", from.String(), to.String(), true).
		Order("date").
		Find(&holidays).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return holidays, nil
}

// HolidaysBetween 一次查询取出区间内的节假日日期
func (r *HolidayRepository) HolidaysBetween(ctx context.Context, from, to clock.LocalDate) ([]clock.LocalDate, error) {
	holidays, err := r.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return holidayDates(holidays)
}

func holidayDates(holidays []*model.Holiday) ([]clock.LocalDate, error) {
	dates := make([]clock.LocalDate, 0, len(holidays))
	for _, h := range holidays {
		d, err := clock.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %d has malformed date %q: %w", h.ID, h.Date, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Upsert 按日期写入或更新节假日
func (r *HolidayRepository) Upsert(ctx context.Context, h *model.Holiday) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "is_active", "updated_at"}),
		}).
		Create(h).Error
	if err != nil {
		return fmt.Errorf("failed to upsert holiday %s: %w", h.Date, err)
	}
	return nil
}
