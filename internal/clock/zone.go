package clock

// 组织只有一个固定时区：存储层统一使用 UTC 瞬时时间，业务判断统一使用 LocalTime。
// LocalTime 只能通过 Zone.ToLocal 构造，且不提供再次转换的方法，避免时区偏移被重复叠加。

import (
	"fmt"
	"time"
	_ "time/tzdata" // 精简镜像中没有系统时区库
)

// Zone 组织所在的固定民用时区
type Zone struct {
	loc *time.Location
}

// LoadZone 根据 IANA 名称加载时区，如 "Asia/Ho_Chi_Minh"
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// FixedZone 构造固定偏移时区，不依赖系统 tzdata
func FixedZone(name string, offset time.Duration) Zone {
	return Zone{loc: time.FixedZone(name, int(offset.Seconds()))}
}

func (z Zone) location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Name 时区名称
func (z Zone) Name() string {
	return z.location().String()
}

// ToLocal 把绝对时间转换为组织本地挂钟时间
func (z Zone) ToLocal(instant time.Time) LocalTime {
	return LocalTime{t: instant.In(z.location())}
}

// DateKey 返回绝对时间在组织时区下的日期（一天的自然键）
func (z Zone) DateKey(instant time.Time) LocalDate {
	return z.ToLocal(instant).Date()
}

// At 组合本地日期和本地时刻，返回对应的绝对时间（UTC）
func (z Zone) At(date LocalDate, tod TimeOfDay) time.Time {
	return time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, 0, 0, z.location()).UTC()
}

// StartOfDay 本地日期 00:00 对应的绝对时间
func (z Zone) StartOfDay(date LocalDate) time.Time {
	return z.At(date, TimeOfDay{})
}

// LocalTime 组织时区下的挂钟时间，与 time.Time（绝对时间）是不同的类型
type LocalTime struct {
	t time.Time
}

// Instant 返回对应的绝对时间（UTC）
func (l LocalTime) Instant() time.Time {
	return l.t.UTC()
}

// Date 本地日期
func (l LocalTime) Date() LocalDate {
	return LocalDate{Year: l.t.Year(), Month: l.t.Month(), Day: l.t.Day()}
}

// TimeOfDay 本地时刻，精确到分钟
func (l LocalTime) TimeOfDay() TimeOfDay {
	return TimeOfDay{Hour: l.t.Hour(), Minute: l.t.Minute()}
}

// SinceMidnight 距本地零点的时长，保留秒级精度用于窗口边界判断
func (l LocalTime) SinceMidnight() time.Duration {
	return time.Duration(l.t.Hour())*time.Hour +
		time.Duration(l.t.Minute())*time.Minute +
		time.Duration(l.t.Second())*time.Second +
		time.Duration(l.t.Nanosecond())
}

func (l LocalTime) Weekday() time.Weekday {
	return l.t.Weekday()
}

// Format 按本地挂钟格式化，仅用于展示
func (l LocalTime) Format(layout string) string {
	return l.t.Format(layout)
}

func (l LocalTime) String() string {
	return l.t.Format("2006-01-02 15:04:05 MST")
}

func (l LocalTime) IsZero() bool {
	return l.t.IsZero()
}
