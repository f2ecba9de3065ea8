package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	Manual(w http.ResponseWriter, r *http.Request)
	Bulk(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Correct(w http.ResponseWriter, r *http.Request)
	Sweep(w http.ResponseWriter, r *http.Request)
	MarkAbsent(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
	now               func() time.Time
}

func NewAttendanceHandler(attendanceService attendance.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		now:               time.Now,
	}
}

// Manual implements AttendanceHandler.
func (h *attendanceHandlerImpl) Manual(w http.ResponseWriter, r *http.Request) {
	var req attendance.ManualEventRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		slog.Error("Failed to decode manual attendance request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RecordedBy = getUserIDFromContext(r)

	result, err := h.attendanceService.SubmitManual(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance recorded successfully", result)
}

// Bulk implements AttendanceHandler.
func (h *attendanceHandlerImpl) Bulk(w http.ResponseWriter, r *http.Request) {
	var req attendance.BulkManualRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		slog.Error("Failed to decode bulk attendance request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RecordedBy = getUserIDFromContext(r)

	result, err := h.attendanceService.SubmitBulkManual(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Bulk attendance processed", result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	filter := attendance.RecordFilter{}

	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	// Date range filters
	if startDate := r.URL.Query().Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}

	if endDate := r.URL.Query().Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}

	// Pagination
	filter.Page = getIntQueryParam(r, "page", 1)
	filter.Limit = getIntQueryParam(r, "limit", 20)

	// Validate filter
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.attendanceService.ListRecords(ctx, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results.Records, &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.attendanceService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Correct implements AttendanceHandler.
func (h *attendanceHandlerImpl) Correct(w http.ResponseWriter, r *http.Request) {
	var req attendance.CorrectionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		slog.Error("Failed to decode correction request", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.RecordedBy = getUserIDFromContext(r)

	result, err := h.attendanceService.CorrectRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance corrected successfully", result)
}

// Sweep implements AttendanceHandler. Without trigger_at the sweep runs as of now.
func (h *attendanceHandlerImpl) Sweep(w http.ResponseWriter, r *http.Request) {
	var req attendance.SweepRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	trigger := h.now()
	if req.TriggerAt != "" {
		trigger, _ = validator.IsValidDateTime(req.TriggerAt)
	}

	result, err := h.attendanceService.RunForcedClosure(r.Context(), trigger)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Info("Manual sweep triggered", "user_id", getUserIDFromContext(r), "closed", result.ClosedCount)
	response.SuccessWithMessage(w, "Sweep completed", result)
}

// MarkAbsent implements AttendanceHandler. Without date, today is used.
func (h *attendanceHandlerImpl) MarkAbsent(w http.ResponseWriter, r *http.Request) {
	var req attendance.AbsenceRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	date := attendance.CivilDate(h.now())
	if req.Date != "" {
		date, _ = attendance.ParseDate(req.Date)
	}

	result, err := h.attendanceService.MarkAbsent(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Absence marking completed", result)
}
