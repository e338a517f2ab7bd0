// Package audit records every validation decision for later review. The
// trail is append-only; entries carry the full outcome including the
// compliance escalations that never reach the client response.
package audit

import (
	"context"
	"time"

	"paygate-hq/ceres/pkg/validator/verdict"
)

// EventInternalError marks an entry written for a request the service
// could not evaluate.
const EventInternalError = "INTERNAL_ERROR"

// Entry is one audit record.
type Entry struct {
	ID              string               `json:"id"`
	Timestamp       time.Time            `json:"timestamp"`
	RequestID       string               `json:"requestId"`
	MerchantID      string               `json:"merchantId"`
	BeneficiaryType string               `json:"beneficiaryType"`
	TaxID           string               `json:"taxId,omitempty"`
	Status          string               `json:"status"`
	RulesetVersion  string               `json:"rulesetVersion"`
	Errors          []verdict.Diagnostic `json:"errors,omitempty"`
	Warnings        []verdict.Diagnostic `json:"warnings,omitempty"`
	Escalations     []verdict.Diagnostic `json:"escalations,omitempty"`
	Error           string               `json:"error,omitempty"`
}

// Sink receives audit entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}
