package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

// ReaderIDHeader identifies the physical reader behind a bridge.
const ReaderIDHeader = "X-Reader-ID"

type ScanHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
}

type scanHandlerImpl struct {
	attendanceService attendance.Service
}

func NewScanHandler(attendanceService attendance.Service) ScanHandler {
	return &scanHandlerImpl{
		attendanceService: attendanceService,
	}
}

// Submit implements ScanHandler. Both outcomes carry data.token.
func (h *scanHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	readerID := r.Header.Get(ReaderIDHeader)

	var req attendance.ScanRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		slog.Warn("Failed to decode scan request", "reader_id", readerID, "error", err)
		response.ScanRejected(w, validator.ValidationErrors{{
			Field:   "body",
			Message: "invalid request body",
		}})
		return
	}

	result, err := h.attendanceService.SubmitScan(r.Context(), req)
	if err != nil {
		slog.Info("Scan rejected", "reader_id", readerID, "uid", req.UID, "code", attendance.CodeOf(err))
		response.ScanRejected(w, err)
		return
	}

	slog.Info("Scan accepted", "reader_id", readerID, "employee_id", result.EmployeeID, "action", result.Action)
	response.Success(w, result)
}
