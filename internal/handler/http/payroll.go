package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	GetLatestRegulations(w http.ResponseWriter, r *http.Request)
	PreviewBatch(w http.ResponseWriter, r *http.Request)
	CommitBatch(w http.ResponseWriter, r *http.Request)
	ListPayrollRecords(w http.ResponseWriter, r *http.Request)
	RecalculateRecord(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== REGULATIONS ==========

func (h *payrollHandlerImpl) GetLatestRegulations(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.GetLatestRegulations(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== BATCH ==========

func (h *payrollHandlerImpl) PreviewBatch(w http.ResponseWriter, r *http.Request) {
	var req payroll.PreviewBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.PreviewBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll batch computed", result)
}

func (h *payrollHandlerImpl) CommitBatch(w http.ResponseWriter, r *http.Request) {
	var req payroll.CommitBatchRequest
	// An empty body commits without overwrite.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RunID = chi.URLParam(r, "runID")

	result, err := h.payrollService.CommitBatch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll batch saved", result)
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) ListPayrollRecords(w http.ResponseWriter, r *http.Request) {
	month, year := periodFromQuery(r)

	result, err := h.payrollService.ListPayrollRecords(r.Context(), month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) RecalculateRecord(w http.ResponseWriter, r *http.Request) {
	var req payroll.RecalculateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employeeID")

	result, err := h.payrollService.RecalculateRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Overwritten {
		response.SuccessWithMessage(w, "Payroll record replaced", result)
		return
	}
	response.Created(w, "Payroll record saved", result)
}
