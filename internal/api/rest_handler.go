package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
	"approval_engine/internal/engine"
	"approval_engine/internal/repository"
	"approval_engine/internal/selector"
	"approval_engine/internal/service"
	"approval_engine/pkg/crypto"
	"approval_engine/pkg/metrics"
	"approval_engine/pkg/validator"
)

type APIHandler struct {
	engine         *engine.RuleEngine
	selector       *selector.Selector
	audit          repository.AuditLog
	dispatcher     *service.NotificationDispatcher
	metrics        *metrics.MetricsCollector
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	ruleEngine *engine.RuleEngine,
	approverSelector *selector.Selector,
	audit repository.AuditLog,
	dispatcher *service.NotificationDispatcher,
	collector *metrics.MetricsCollector,
	signer *crypto.Signer,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		engine:         ruleEngine,
		selector:       approverSelector,
		audit:          audit,
		dispatcher:     dispatcher,
		metrics:        collector,
		signer:         signer,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type EvaluateRequest struct {
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	TransactionType string                 `json:"transaction_type,omitempty"`
	Initiator       string                 `json:"initiator,omitempty"`
	Timestamp       time.Time              `json:"timestamp,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

type SimulateResponse struct {
	Decision    *domain.PolicyDecision `json:"decision"`
	Explanation []string               `json:"explanation"`
}

type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type SignedSnapshot struct {
	Snapshot  *domain.Snapshot `json:"snapshot"`
	Signature string           `json:"signature,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *APIHandler) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	ec, ok := h.decodeContext(w, r)
	if !ok {
		return
	}

	startTime := time.Now()
	decision, err := h.engine.Evaluate(ctx, ec)
	duration := time.Since(startTime)

	if err != nil {
		h.logger.ErrorContext(ctx, "Evaluation failed",
			slog.String("error", err.Error()))
		h.sendError(w, fmt.Sprintf("Evaluation failed: %v", err), http.StatusInternalServerError, "EVALUATION_ERROR")
		return
	}

	h.metrics.RecordEvaluation(duration, len(decision.RequiredApprovers), decision.Blocked)
	h.recordDecision(ctx, ec, decision)

	if h.dispatcher != nil {
		if err := h.dispatcher.DispatchDecision(ctx, ec, decision); err != nil {
			h.logger.ErrorContext(ctx, "Failed to dispatch notifications",
				slog.String("error", err.Error()))
		}
	}

	h.sendJSON(w, decision, http.StatusOK)
	h.logger.InfoContext(ctx, "Context evaluated",
		slog.String("amount", ec.Amount.String()),
		slog.String("currency", ec.Currency),
		slog.Int("approvers", len(decision.RequiredApprovers)),
		slog.Bool("blocked", decision.Blocked))
}

func (h *APIHandler) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	ec, ok := h.decodeContext(w, r)
	if !ok {
		return
	}

	decision, explanation, err := h.engine.SimulatePolicy(ctx, ec)
	if err != nil {
		h.sendError(w, fmt.Sprintf("Simulation failed: %v", err), http.StatusInternalServerError, "SIMULATION_ERROR")
		return
	}

	h.sendJSON(w, SimulateResponse{Decision: decision, Explanation: explanation}, http.StatusOK)
}

func (h *APIHandler) SelectApproversHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	rawAmount := r.URL.Query().Get("amount")
	currency := r.URL.Query().Get("currency")
	if rawAmount == "" || currency == "" {
		h.sendError(w, "amount and currency are required", http.StatusBadRequest, "MISSING_PARAMS")
		return
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		h.sendError(w, "amount must be a decimal number", http.StatusBadRequest, "INVALID_AMOUNT")
		return
	}

	selection := h.selector.SelectApprovers(ctx, amount, currency)
	if selection.Policy == nil || len(selection.SelectedApprovers) == 0 {
		h.metrics.RecordNoPolicyMatch()
	}

	h.sendJSON(w, selection, http.StatusOK)
}

func (h *APIHandler) ListRulesHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.engine.GetRules(), http.StatusOK)
}

func (h *APIHandler) GetRuleHandler(w http.ResponseWriter, r *http.Request) {
	rule, err := h.engine.GetRule(r.PathValue("id"))
	if err != nil {
		h.sendError(w, "Rule not found", http.StatusNotFound, "NOT_FOUND")
		return
	}
	h.sendJSON(w, rule, http.StatusOK)
}

func (h *APIHandler) CreateRuleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var rule domain.PolicyRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		h.sendError(w, fmt.Sprintf("Invalid rule body: %v", err), http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if rule.ID == "" {
		rule.ID = domain.NewCustomRuleID()
	}

	if err := h.engine.AddRule(ctx, &rule, h.actor(r)); err != nil {
		h.sendMutationError(w, err)
		return
	}

	h.afterMutation("create")
	created, _ := h.engine.GetRule(rule.ID)
	h.sendJSON(w, created, http.StatusCreated)
}

func (h *APIHandler) UpdateRuleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var rule domain.PolicyRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		h.sendError(w, fmt.Sprintf("Invalid rule body: %v", err), http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	rule.ID = r.PathValue("id")

	if err := h.engine.UpdateRule(ctx, &rule, h.actor(r)); err != nil {
		h.sendMutationError(w, err)
		return
	}

	h.afterMutation("update")
	updated, _ := h.engine.GetRule(rule.ID)
	h.sendJSON(w, updated, http.StatusOK)
}

func (h *APIHandler) DeleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.engine.RemoveRule(ctx, r.PathValue("id"), h.actor(r)); err != nil {
		h.sendMutationError(w, err)
		return
	}

	h.afterMutation("delete")
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ToggleRuleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if err := h.engine.ToggleRule(ctx, r.PathValue("id"), req.Enabled, h.actor(r)); err != nil {
		h.sendMutationError(w, err)
		return
	}

	h.afterMutation("toggle")
	toggled, _ := h.engine.GetRule(r.PathValue("id"))
	h.sendJSON(w, toggled, http.StatusOK)
}

func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.Export()
	signed := SignedSnapshot{Snapshot: snapshot}

	if h.signer != nil {
		signature, err := h.signer.SignSnapshot(snapshot)
		if err != nil {
			h.sendError(w, "Failed to sign snapshot", http.StatusInternalServerError, "SIGNING_ERROR")
			return
		}
		signed.Signature = signature
	}

	h.sendJSON(w, signed, http.StatusOK)
}

func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var signed SignedSnapshot
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		h.sendError(w, fmt.Sprintf("Invalid snapshot body: %v", err), http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	// With a signer configured an unsigned snapshot is as untrusted as a
	// forged one.
	if h.signer != nil {
		if signed.Signature == "" {
			h.sendError(w, "Snapshot signature is required", http.StatusUnauthorized, "MISSING_SIGNATURE")
			return
		}
		if valid, err := h.signer.VerifySnapshot(signed.Snapshot, signed.Signature); !valid || err != nil {
			h.sendError(w, "Snapshot signature verification failed", http.StatusUnauthorized, "INVALID_SIGNATURE")
			return
		}
	}

	if err := h.engine.Import(ctx, signed.Snapshot, h.actor(r)); err != nil {
		h.sendMutationError(w, err)
		return
	}

	h.afterMutation("import")
	h.sendJSON(w, map[string]interface{}{
		"imported": len(signed.Snapshot.Rules),
		"version":  signed.Snapshot.Version,
	}, http.StatusOK)
}

func (h *APIHandler) DecisionAuditHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	from, to, err := parsePeriod(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "INVALID_PERIOD")
		return
	}

	records, err := h.audit.DecisionsByPeriod(ctx, from, to)
	if err != nil {
		h.sendError(w, "Failed to read audit log", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	h.sendJSON(w, records, http.StatusOK)
}

func (h *APIHandler) RuleAuditHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	records, err := h.audit.MutationsByRule(ctx, r.PathValue("id"))
	if err != nil {
		h.sendError(w, "Failed to read audit log", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}
	h.sendJSON(w, records, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"rules":     len(h.engine.GetRules()),
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) decodeContext(w http.ResponseWriter, r *http.Request) (*domain.EvaluationContext, bool) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return nil, false
	}

	if req.Amount.IsNegative() {
		h.sendError(w, "amount must not be negative", http.StatusBadRequest, "VALIDATION_ERROR")
		return nil, false
	}
	if req.Currency == "" {
		h.sendError(w, "currency is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return nil, false
	}

	ec := domain.NewEvaluationContext(req.Amount, req.Currency).
		WithTransactionType(req.TransactionType).
		WithInitiator(req.Initiator)
	if !req.Timestamp.IsZero() {
		ec.WithTimestamp(req.Timestamp)
	}
	for k, v := range req.Metadata {
		ec.AddMetadata(k, v)
	}
	return ec, true
}

func (h *APIHandler) recordDecision(ctx context.Context, ec *domain.EvaluationContext, decision *domain.PolicyDecision) {
	if h.audit == nil {
		return
	}

	ruleIDs := make([]string, 0, len(decision.AppliedRules))
	for _, rule := range decision.AppliedRules {
		ruleIDs = append(ruleIDs, rule.ID)
	}

	record := &domain.DecisionRecord{
		Amount:            ec.Amount,
		Currency:          ec.Currency,
		TransactionType:   ec.TransactionType,
		Initiator:         ec.Initiator,
		RequiredApprovers: decision.RequiredApprovers,
		AppliedRuleIDs:    ruleIDs,
		Priority:          decision.Priority,
		Blocked:           decision.Blocked,
		EvaluatedAt:       time.Now(),
	}
	if err := h.audit.RecordDecision(ctx, record); err != nil {
		h.logger.ErrorContext(ctx, "Failed to record decision",
			slog.String("error", err.Error()))
	}
}

func (h *APIHandler) afterMutation(op string) {
	h.metrics.RecordMutation(op)
	h.metrics.SetActiveRules(len(h.engine.GetRules()))
}

func (h *APIHandler) actor(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "admin-api"
}

func (h *APIHandler) sendMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		h.sendError(w, err.Error(), http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, engine.ErrDuplicateRule):
		h.sendError(w, err.Error(), http.StatusConflict, "DUPLICATE_RULE")
	case errors.Is(err, validator.ErrInvalidRule),
		errors.Is(err, validator.ErrInvalidCondition),
		errors.Is(err, validator.ErrInvalidSnapshot),
		errors.Is(err, validator.ErrInvalidThreshold):
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	default:
		h.sendError(w, err.Error(), http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().Add(time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %v", err)
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %v", err)
		}
		to = parsed
	}
	return from, to, nil
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/evaluate", h.EvaluateHandler)
	mux.HandleFunc("POST /api/v1/simulate", h.SimulateHandler)
	mux.HandleFunc("GET /api/v1/approvers/selection", h.SelectApproversHandler)
	mux.HandleFunc("GET /api/v1/rules", h.ListRulesHandler)
	mux.HandleFunc("POST /api/v1/rules", h.CreateRuleHandler)
	mux.HandleFunc("GET /api/v1/rules/export", h.ExportHandler)
	mux.HandleFunc("POST /api/v1/rules/import", h.ImportHandler)
	mux.HandleFunc("GET /api/v1/rules/{id}", h.GetRuleHandler)
	mux.HandleFunc("PUT /api/v1/rules/{id}", h.UpdateRuleHandler)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", h.DeleteRuleHandler)
	mux.HandleFunc("POST /api/v1/rules/{id}/toggle", h.ToggleRuleHandler)
	mux.HandleFunc("GET /api/v1/audit/decisions", h.DecisionAuditHandler)
	mux.HandleFunc("GET /api/v1/audit/rules/{id}", h.RuleAuditHandler)
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}
