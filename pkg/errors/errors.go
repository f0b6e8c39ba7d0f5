package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized   = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID  = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	RateLimited    = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// 签到制度拒绝。
var (
	NonWorkingDay = Definition{Code: "NON_WORKING_DAY", Message: "Today is not a working day"}
	Holiday       = Definition{Code: "HOLIDAY", Message: "Today is a holiday"}
	TooLate       = Definition{Code: "TOO_LATE", Message: "Check-in window has closed"}
)

// 考勤记录状态冲突。
var (
	AlreadyCheckedIn  = Definition{Code: "ALREADY_CHECKED_IN", Message: "Already checked in today"}
	AlreadyCheckedOut = Definition{Code: "ALREADY_CHECKED_OUT", Message: "Already checked out today"}
	NoCheckInToday    = Definition{Code: "NO_CHECKIN_TODAY", Message: "No check-in found for today"}
	RecordNotFound    = Definition{Code: "RECORD_NOT_FOUND", Message: "No attendance record for today"}
)

// 月报错误。
var (
	InvalidMonth = Definition{Code: "INVALID_MONTH", Message: "Month must be formatted as YYYY-MM"}
)

// 存储类故障，客户端可以重试。
var (
	StorageBusy = Definition{Code: "STORAGE_BUSY", Message: "Attendance storage is busy, please retry"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:    InvalidRequest,
	Unauthorized.Code:      Unauthorized,
	InvalidUserID.Code:     InvalidUserID,
	RateLimited.Code:       RateLimited,
	NonWorkingDay.Code:     NonWorkingDay,
	Holiday.Code:           Holiday,
	TooLate.Code:           TooLate,
	AlreadyCheckedIn.Code:  AlreadyCheckedIn,
	AlreadyCheckedOut.Code: AlreadyCheckedOut,
	NoCheckInToday.Code:    NoCheckInToday,
	RecordNotFound.Code:    RecordNotFound,
	InvalidMonth.Code:      InvalidMonth,
	StorageBusy.Code:       StorageBusy,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 重复投递的消息：确认但不再处理
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// IsSkip 是否为应当直接确认的消息
func IsSkip(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
