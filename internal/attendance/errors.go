package attendance

import "errors"

// 存储类故障：调用方可以整体重试该事件，引擎自身不重试
var (
	// ErrDuplicateKey 同一 (user, work_date) 已存在记录，通常是并发签到的竞争结果
	ErrDuplicateKey = errors.New("attendance record already exists for user and work date")
	// ErrRecordNotFound 按 ID 更新时记录不存在
	ErrRecordNotFound = errors.New("attendance record not found")
	// ErrStoreUnavailable 记录存储不可达或执行失败
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	// ErrLockBusy 同一记录正被其他请求修改
	ErrLockBusy = errors.New("attendance record is busy")
	// ErrInconsistentRecord 存储的记录状态与字段矛盾，如已关闭却没有签退时间。重试无意义
	ErrInconsistentRecord = errors.New("attendance record is inconsistent")
)

// IsRetryable 是否是可重试的存储类故障
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrLockBusy)
}
