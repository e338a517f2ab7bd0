package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"paygate-hq/ceres/pkg/audit"
	"paygate-hq/ceres/pkg/rules/ast"
	"paygate-hq/ceres/pkg/validator/verdict"
)

const (
	headerRequestID  = "X-Request-Id"
	headerMerchantID = "X-Merchant-Id"
)

// validateResponse is the wire shape of every validate reply, success and
// failure alike.
type validateResponse struct {
	Status         string               `json:"status"` // OK or FAILED
	RulesetVersion string               `json:"rulesetVersion,omitempty"`
	ErrorDesc      string               `json:"errorDesc,omitempty"`
	Errors         []verdict.Diagnostic `json:"errors,omitempty"`
	Warnings       []verdict.Diagnostic `json:"warnings,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(headerRequestID, requestID)

	merchantID := r.Header.Get(headerMerchantID)
	if merchantID == "" {
		s.writeJSON(w, http.StatusBadRequest, validateResponse{
			Status:         "FAILED",
			RulesetVersion: s.validator.DefaultRulesetVersion(),
			ErrorDesc:      "Merchant identification header is required",
			Errors: []verdict.Diagnostic{{
				Code:     "HEADER_REQUIRED",
				Category: ast.CategoryRequired,
				Message:  headerMerchantID + " header is required",
			}},
		})
		return
	}

	var payload map[string]any
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, validateResponse{
			Status:    "FAILED",
			ErrorDesc: "Request body is not valid JSON",
			Errors: []verdict.Diagnostic{{
				Code:    "INVALID_JSON",
				Message: "request body must be a JSON object",
			}},
		})
		return
	}

	v, err := s.validator.Validate(r.Context(), payload, merchantID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "validation fault",
			"request_id", requestID,
			"merchant_id", merchantID,
			"error", err,
		)
		s.recordAudit(r, audit.Entry{
			ID:              uuid.NewString(),
			Timestamp:       time.Now(),
			RequestID:       requestID,
			MerchantID:      merchantID,
			BeneficiaryType: stringField(payload, "beneficiary_type"),
			TaxID:           stringField(payload, "inn"),
			Status:          audit.EventInternalError,
			Error:           err.Error(),
		})
		// Internals stay out of the response body.
		s.writeJSON(w, http.StatusInternalServerError, validateResponse{
			Status:    "FAILED",
			ErrorDesc: "Internal error",
		})
		return
	}

	s.recordAudit(r, audit.Entry{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		RequestID:       requestID,
		MerchantID:      merchantID,
		BeneficiaryType: stringField(payload, "beneficiary_type"),
		TaxID:           stringField(payload, "inn"),
		Status:          string(v.Status),
		RulesetVersion:  v.RulesetVersion,
		Errors:          v.Errors,
		Warnings:        v.Warnings,
		Escalations:     v.Escalations,
	})

	status, desc, resp := responseFor(v)
	resp.RulesetVersion = v.RulesetVersion
	resp.ErrorDesc = desc
	s.writeJSON(w, status, resp)
}

func responseFor(v verdict.Verdict) (int, string, validateResponse) {
	switch v.Status {
	case verdict.StatusComplianceBlock:
		return http.StatusForbidden, "Compliance block triggered", validateResponse{
			Status: "FAILED",
			Errors: v.Errors,
		}
	case verdict.StatusValidationError:
		return http.StatusUnprocessableEntity, "Validation failed", validateResponse{
			Status:   "FAILED",
			Errors:   v.Errors,
			Warnings: v.Warnings,
		}
	default:
		return http.StatusOK, "Ok", validateResponse{
			Status:   "OK",
			Warnings: v.Warnings,
		}
	}
}

func (s *Server) recordAudit(r *http.Request, entry audit.Entry) {
	if s.auditSink == nil {
		return
	}
	if err := s.auditSink.Record(r.Context(), entry); err != nil {
		s.logger.ErrorContext(r.Context(), "audit record failed",
			"request_id", entry.RequestID,
			"error", err,
		)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body validateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
