// Package validator orchestrates one validation run: resolve the merchant
// policy, normalize the payload, assemble the applicable rules, evaluate
// them and aggregate the verdict.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paygate-hq/ceres/pkg/catalog"
	"paygate-hq/ceres/pkg/rules/ast"
	"paygate-hq/ceres/pkg/telemetry/metrics"
	"paygate-hq/ceres/pkg/validator/engine"
	"paygate-hq/ceres/pkg/validator/facts"
	"paygate-hq/ceres/pkg/validator/verdict"
)

// Config carries the evaluation toggles.
type Config struct {
	// AcceptLegacyDates converts DD.MM.YYYY payload dates to the canonical
	// form instead of rejecting them.
	AcceptLegacyDates bool
}

// Service is the validation entry point. Safe for concurrent use; each
// request reads one immutable catalog snapshot.
type Service struct {
	catalog   *catalog.Catalog
	evaluator *engine.Evaluator
	logger    *slog.Logger
	metrics   *metrics.ValidationMetrics
	cfg       Config
}

// New builds the service. metrics may be nil.
func New(cat *catalog.Catalog, cfg Config, logger *slog.Logger, m *metrics.ValidationMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:   cat,
		evaluator: engine.New(),
		logger:    logger.With("component", "validator"),
		metrics:   m,
		cfg:       cfg,
	}
}

// DefaultRulesetVersion reports the catalog's current default version.
func (s *Service) DefaultRulesetVersion() string {
	return s.catalog.Snapshot().DefaultRulesetVersion()
}

// Validate runs the full evaluation for one registration payload. A
// returned error means the run could not complete (catalog defect, missing
// rule group); every payload-level finding comes back inside the verdict.
func (s *Service) Validate(ctx context.Context, payload map[string]any, merchantID string) (verdict.Verdict, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return verdict.Verdict{}, err
	}

	snap := s.catalog.Snapshot()
	policy := snap.MerchantPolicy(merchantID)

	beneficiaryType, _ := payload["beneficiary_type"].(string)
	if beneficiaryType == "" {
		// No type means no ruleset was selected; the verdict reports the
		// system default version, not the merchant's.
		v := verdict.Aggregate([]ast.Event{missingTypeEvent()}, snap.DefaultRulesetVersion())
		s.observe(v, beneficiaryType, start)
		return v, nil
	}

	normalized, dateEvents := facts.NormalizeDates(payload, s.cfg.AcceptLegacyDates)
	if len(dateEvents) > 0 {
		// Malformed dates end the run before any rule sees them; every
		// date-dependent check downstream would be noise.
		v := verdict.Aggregate(dateEvents, policy.RulesetVersion)
		s.observe(v, beneficiaryType, start)
		return v, nil
	}

	rules, err := snap.RulesFor(beneficiaryType, policy.RulesetVersion)
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("assembling rules for %q: %w", beneficiaryType, err)
	}

	table := facts.Flatten(normalized)
	table.Derive(snap.Dictionaries())

	rules = engine.FilterPresenceRules(rules, policy.EffectiveRequiredFields(beneficiaryType))
	rules = engine.ResolveFactRefs(rules, table)
	table.CompleteAbsent(ast.FactPaths(rules))

	events, err := s.evaluator.Evaluate(rules, table)
	if err != nil {
		return verdict.Verdict{}, err
	}

	v := verdict.Aggregate(events, policy.RulesetVersion)
	s.observe(v, beneficiaryType, start)
	s.logger.DebugContext(ctx, "evaluation finished",
		"merchant_id", merchantID,
		"beneficiary_type", beneficiaryType,
		"ruleset_version", v.RulesetVersion,
		"status", v.Status,
		"errors", len(v.Errors),
		"warnings", len(v.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return v, nil
}

func (s *Service) observe(v verdict.Verdict, beneficiaryType string, start time.Time) {
	s.metrics.ObserveEvaluation(string(v.Status), beneficiaryType, time.Since(start))
	counts := make(map[ast.Category]int)
	for _, d := range v.Errors {
		counts[d.Category]++
	}
	for _, d := range v.Warnings {
		counts[d.Category]++
	}
	for category, n := range counts {
		s.metrics.AddDiagnostics(string(category), n)
	}
}

func missingTypeEvent() ast.Event {
	return ast.Event{
		Type: ast.EventValidationError,
		Params: ast.EventParams{
			Field:    "beneficiary_type",
			Code:     "BENEFICIARY_TYPE_MISSING",
			Category: ast.CategoryRequired,
			Message:  "Beneficiary type is required",
			RuleID:   "beneficiary_type_present",
		},
	}
}
