package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

// maxImportBytes bounds an uploaded time-clock export.
const maxImportBytes = 10 << 20

type AttendanceHandler interface {
	GetTimesheet(w http.ResponseWriter, r *http.Request)
	SaveTimesheet(w http.ResponseWriter, r *http.Request)
	ImportTimesheet(w http.ResponseWriter, r *http.Request)
	ConfirmCheckout(w http.ResponseWriter, r *http.Request)
	GetSummaries(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// periodFromQuery reads month and year; missing or malformed values become 0
// and are rejected by request validation.
func periodFromQuery(r *http.Request) (int, int) {
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	return month, year
}

// GetTimesheet implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	month, year := periodFromQuery(r)

	result, err := h.attendanceService.GetTimesheet(r.Context(), attendance.TimesheetQuery{Month: month, Year: year})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// SaveTimesheet implements AttendanceHandler.
func (h *attendanceHandlerImpl) SaveTimesheet(w http.ResponseWriter, r *http.Request) {
	var req attendance.SaveTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.SaveTimesheet(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timesheet saved", result)
}

// ImportTimesheet implements AttendanceHandler. It accepts either a JSON body
// or a multipart upload with month, year and a "file" part.
func (h *attendanceHandlerImpl) ImportTimesheet(w http.ResponseWriter, r *http.Request) {
	var req attendance.ImportTimesheetRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}
		req.Month, _ = strconv.Atoi(r.FormValue("month"))
		req.Year, _ = strconv.Atoi(r.FormValue("year"))

		file, _, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "Field 'file' is required", nil)
			return
		}
		defer file.Close()

		var sb strings.Builder
		if _, err := copyLimited(&sb, file, maxImportBytes); err != nil {
			response.BadRequest(w, err.Error(), nil)
			return
		}
		req.Content = sb.String()
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}

	result, err := h.attendanceService.ImportTimesheet(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance imported", result)
}

// ConfirmCheckout implements AttendanceHandler.
func (h *attendanceHandlerImpl) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	var req attendance.ConfirmCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.ConfirmInferredCheckout(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Checkout confirmed", result)
}

// GetSummaries implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetSummaries(w http.ResponseWriter, r *http.Request) {
	month, year := periodFromQuery(r)

	var employeeIDs []string
	if ids := r.URL.Query().Get("employee_ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				employeeIDs = append(employeeIDs, id)
			}
		}
	}

	summaries, err := h.attendanceService.GetMonthlySummaries(r.Context(), attendance.Period{Month: month, Year: year}, employeeIDs)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]attendance.SummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, attendance.NewSummaryResponse(s))
	}

	response.Success(w, result)
}
