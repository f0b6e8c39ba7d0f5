package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"AttendBot/internal/attendance"
	"AttendBot/internal/clock"
	"AttendBot/internal/middleware"
	"AttendBot/internal/model"
	"AttendBot/internal/policy"
	"AttendBot/internal/report"
	"AttendBot/pkg/errors"
	"AttendBot/pkg/logger"
	"AttendBot/pkg/response"
)

// AttendanceHandler 考勤 HTTP 接口，时间一律取服务端当前时间
type AttendanceHandler struct {
	svc     *attendance.Service
	reports *report.Aggregator
	now     func() time.Time
}

func NewAttendanceHandler(svc *attendance.Service, reports *report.Aggregator, now func() time.Time) *AttendanceHandler {
	if now == nil {
		now = time.Now
	}
	return &AttendanceHandler{svc: svc, reports: reports, now: now}
}

// CheckIn 签到
// POST /v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := h.svc.CheckIn(ctx, userID, h.now())
	if err != nil {
		storageError(ctx, c, "check-in", userID, err)
		return
	}

	data := model.CheckInResponse{
		Outcome:            string(result.Outcome),
		WorkDate:           result.WorkDate,
		Timing:             string(result.Timing),
		CheckInAt:          result.CheckInAt,
		ExpectedCompletion: result.ExpectedCompletion,
		CheckOutAt:         result.CheckOutAt,
	}

	switch result.Outcome {
	case attendance.OutcomeAccepted, attendance.OutcomeReopened:
		response.Success(ctx, c, data)
	case attendance.OutcomeRejected:
		response.ErrorWithDetails(ctx, c, rejection(policy.Reason(result.Code)), map[string]interface{}{
			"work_date": result.WorkDate,
		})
	default:
		response.ErrorWithDetails(ctx, c, conflict(result.Code), map[string]interface{}{
			"record": data,
		})
	}
}

// CheckOut 签退
// POST /v1/attendance/check-out
func (h *AttendanceHandler) CheckOut(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := h.svc.CheckOut(ctx, userID, h.now())
	if err != nil {
		storageError(ctx, c, "check-out", userID, err)
		return
	}

	data := model.CheckOutResponse{
		Outcome:            string(result.Outcome),
		WorkDate:           result.WorkDate,
		Status:             string(result.Status),
		CheckInAt:          result.CheckInAt,
		CheckOutAt:         result.CheckOutAt,
		ExpectedCompletion: result.ExpectedCompletion,
		ActualHours:        result.ActualHours.StringFixed(2),
		IsComplete:         result.IsComplete,
		ShortfallMinutes:   int64(result.Shortfall / time.Minute),
	}

	switch {
	case result.OK():
		response.Success(ctx, c, data)
	case result.Code == attendance.CodeAlreadyCheckedOut:
		// 重复签退不修改记录，带回首次签退的结果
		response.ErrorWithDetails(ctx, c, errors.AlreadyCheckedOut, map[string]interface{}{
			"record": data,
		})
	default:
		response.ErrorWithDetails(ctx, c, conflict(result.Code), map[string]interface{}{
			"work_date": result.WorkDate,
		})
	}
}

// GetToday 当天考勤状态
// GET /v1/attendance/today
func (h *AttendanceHandler) GetToday(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	status, err := h.svc.GetToday(ctx, userID, h.now())
	if err != nil {
		storageError(ctx, c, "get today", userID, err)
		return
	}
	if status == nil {
		response.Error(ctx, c, errors.RecordNotFound)
		return
	}

	data := model.TodayResponse{
		WorkDate:           status.WorkDate,
		Status:             string(status.Record.Status),
		Timing:             string(status.Timing),
		CheckInAt:          status.Record.CheckInAt,
		CheckOutAt:         status.Record.CheckOutAt,
		ExpectedCompletion: status.ExpectedCompletion,
		PreCompletionAt:    status.PreCompletionAt,
		IsComplete:         status.IsComplete,
	}
	if status.Record.CheckOutAt != nil {
		data.ActualHours = attendance.Hours(status.Worked).StringFixed(2)
	}
	response.Success(ctx, c, data)
}

// GetMonthlyReport 月度汇总，month 为空时取组织时区下的本月
// GET /v1/attendance/reports/monthly?month=YYYY-MM
func (h *AttendanceHandler) GetMonthlyReport(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var query model.MonthlyReportQuery
	if err := c.BindAndValidate(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	year, month := h.currentMonth()
	if query.Month != "" {
		first, err := clock.ParseMonth(query.Month)
		if err != nil {
			response.Error(ctx, c, errors.InvalidMonth)
			return
		}
		year, month = first.Year, first.Month
	}

	rep, err := h.reports.Monthly(ctx, userID, year, month)
	if err != nil {
		storageError(ctx, c, "monthly report", userID, err)
		return
	}
	response.Success(ctx, c, rep)
}

func (h *AttendanceHandler) currentMonth() (int, time.Month) {
	today := h.svc.Evaluator().Zone().DateKey(h.now())
	return today.Year, today.Month
}

func rejection(reason policy.Reason) errors.Definition {
	switch reason {
	case policy.ReasonHoliday:
		return errors.Holiday
	case policy.ReasonTooLate:
		return errors.TooLate
	default:
		return errors.NonWorkingDay
	}
}

func conflict(code string) errors.Definition {
	switch code {
	case attendance.CodeAlreadyCheckedIn:
		return errors.AlreadyCheckedIn
	case attendance.CodeAlreadyCheckedOut:
		return errors.AlreadyCheckedOut
	default:
		return errors.NoCheckInToday
	}
}

// storageError 存储类故障返回 503，客户端可整体重试；其余按 500 处理
func storageError(ctx context.Context, c *app.RequestContext, op, userID string, err error) {
	logger.Logger.Error("Attendance operation failed",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	if attendance.IsRetryable(err) {
		response.Error(ctx, c, errors.StorageBusy)
		return
	}
	response.Error(ctx, c, err)
}
