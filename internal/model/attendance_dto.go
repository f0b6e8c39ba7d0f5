package model

import "time"

// ========== Attendance 相关 DTO ==========

// CheckInResponse 签到结果
type CheckInResponse struct {
	Outcome            string     `json:"outcome"`
	WorkDate           string     `json:"work_date"`
	Timing             string     `json:"timing,omitempty"`
	CheckInAt          time.Time  `json:"check_in_at"`
	ExpectedCompletion time.Time  `json:"expected_completion"`
	CheckOutAt         *time.Time `json:"check_out_at,omitempty"`
}

// CheckOutResponse 签退结果
type CheckOutResponse struct {
	Outcome            string    `json:"outcome"`
	WorkDate           string    `json:"work_date"`
	Status             string    `json:"status"`
	CheckInAt          time.Time `json:"check_in_at"`
	CheckOutAt         time.Time `json:"check_out_at"`
	ExpectedCompletion time.Time `json:"expected_completion"`
	ActualHours        string    `json:"actual_hours"`
	IsComplete         bool      `json:"is_complete"`
	ShortfallMinutes   int64     `json:"shortfall_minutes"`
}

// TodayResponse 当天考勤状态
type TodayResponse struct {
	WorkDate           string     `json:"work_date"`
	Status             string     `json:"status"`
	Timing             string     `json:"timing"`
	CheckInAt          time.Time  `json:"check_in_at"`
	CheckOutAt         *time.Time `json:"check_out_at,omitempty"`
	ExpectedCompletion time.Time  `json:"expected_completion"`
	PreCompletionAt    time.Time  `json:"pre_completion_at"`
	ActualHours        string     `json:"actual_hours,omitempty"`
	IsComplete         bool       `json:"is_complete"`
}

// MonthlyReportQuery 月报查询参数
type MonthlyReportQuery struct {
	Month string `query:"month"` // YYYY-MM，空表示本月
}
