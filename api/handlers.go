/*
handlers.go - HTTP API handlers for the scheduling engine

PURPOSE:
  Exposes the scheduling and billing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Rules:
    GET    /api/rules                  List recurrence rules
    POST   /api/rules                  Create a recurrence rule
    GET    /api/rules/{id}             Get rule details
    DELETE /api/rules/{id}             Delete a rule
    POST   /api/rules/{id}/toggle     Enable/disable generation
    GET    /api/rules/{id}/preview    Preview occurrences in a window

  Generation:
    POST   /api/generate               Materialize sessions for a month
    GET    /api/generate/preview       Count what a run would insert

  Sessions:
    GET    /api/sessions               List sessions (filterable)
    POST   /api/sessions               Record a one-off session
    GET    /api/sessions/unpaid        List unpaid sessions
    GET    /api/sessions/{id}          Get session details
    DELETE /api/sessions/{id}          Cancel a session
    POST   /api/sessions/{id}/pay      Mark paid
    POST   /api/sessions/{id}/waive    Waive payment

  Billing:
    POST   /api/invoices               Invoice a selection of sessions
    GET    /api/invoices               List invoices
    GET    /api/invoices/{id}          Get invoice details

  Reporting:
    GET    /api/stats/monthly          Per-month hours/revenue buckets
    GET    /api/conflicts              Overlapping sessions per resource

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (expansion, ledger, aggregation)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Status conflict (concurrent payment change, re-invoicing)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background generation
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/schedule-engine/billing"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions schedule.SessionStore
	Invoices billing.InvoiceStore
	Log      *zap.Logger
}

// NewHandler creates a new handler over the given stores.
func NewHandler(sessions schedule.SessionStore, invoices billing.InvoiceStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Sessions: sessions,
		Invoices: invoices,
		Log:      log,
	}
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all recurrence rules. ?active=true filters to rules
// with generation enabled.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	rules, err := h.Sessions.ListRules(r.Context(), activeOnly)
	if err != nil {
		h.serverError(w, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule creates a new recurrence rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := ruleFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.Sessions.SaveRule(r.Context(), rule); err != nil {
		h.serverError(w, "Failed to save rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Sessions.GetRule(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get rule", err)
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(*rule))
}

// DeleteRule removes a rule. Already generated sessions are untouched.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	if err := h.Sessions.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrInvalidRule) {
			writeError(w, http.StatusNotFound, "Rule not found", nil)
			return
		}
		h.serverError(w, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRule enables or disables session generation for a rule.
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	var req ToggleRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Sessions.SetRuleActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, schedule.ErrInvalidRule) {
			writeError(w, http.StatusNotFound, "Rule not found", nil)
			return
		}
		h.serverError(w, "Failed to toggle rule", err)
		return
	}

	rule, err := h.Sessions.GetRule(r.Context(), id)
	if err != nil || rule == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(*rule))
}

// PreviewRule expands a rule over ?from / ?to (YYYY-MM-DD) without
// persisting anything.
func (h *Handler) PreviewRule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Sessions.GetRule(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get rule", err)
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "Rule not found", nil)
		return
	}

	from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), rule.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), rule.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	occs, err := schedule.Expand(*rule, from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to expand rule", err)
		return
	}

	writeJSON(w, http.StatusOK, RulePreviewResponse{
		RuleID:   string(id),
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
		Count:    len(occs),
		Sessions: toSessionDTOs(occs),
	})
}

// =============================================================================
// GENERATION HANDLERS
// =============================================================================

// Generate materializes sessions for a month from all active rules.
// Sessions that already exist (same rule, same date) are skipped, so
// repeated runs are idempotent.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	rules, err := h.Sessions.ListRules(r.Context(), true)
	if err != nil {
		h.serverError(w, "Failed to list rules", err)
		return
	}

	candidate := 0
	inserted := 0
	for _, rule := range rules {
		occs, err := expandMonth(rule, month)
		if err != nil {
			h.Log.Warn("skipping rule during generation",
				zap.String("rule_id", string(rule.ID)), zap.Error(err))
			continue
		}
		candidate += len(occs)

		n, err := h.Sessions.SaveOccurrences(r.Context(), occs)
		if err != nil {
			h.serverError(w, "Failed to save sessions", err)
			return
		}
		inserted += n
	}

	h.Log.Info("generation run complete",
		zap.String("month", req.Month),
		zap.Int("rules", len(rules)),
		zap.Int("inserted", inserted),
		zap.Int("skipped", candidate-inserted))

	writeJSON(w, http.StatusOK, GenerateResponse{
		Month:     req.Month,
		Rules:     len(rules),
		Candidate: candidate,
		Inserted:  inserted,
		Skipped:   candidate - inserted,
	})
}

// PreviewGenerate counts what a generation run for ?month would insert,
// without writing anything.
func (h *Handler) PreviewGenerate(w http.ResponseWriter, r *http.Request) {
	month, err := time.Parse("2006-01", r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	rules, err := h.Sessions.ListRules(r.Context(), true)
	if err != nil {
		h.serverError(w, "Failed to list rules", err)
		return
	}

	candidate := 0
	existing := 0
	for _, rule := range rules {
		occs, err := expandMonth(rule, month)
		if err != nil {
			continue
		}
		candidate += len(occs)
		for _, o := range occs {
			if _, err := h.Sessions.GetOccurrence(r.Context(), o.ID); err == nil {
				existing++
			}
		}
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Month:     month.Format("2006-01"),
		Rules:     len(rules),
		Candidate: candidate,
		Inserted:  candidate - existing,
		Skipped:   existing,
	})
}

// expandMonth expands a rule over one calendar month in the rule's own
// timezone.
func expandMonth(rule schedule.RecurrenceRule, month time.Time) ([]schedule.SessionOccurrence, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, rule.Location)
	end := start.AddDate(0, 1, 0)
	return schedule.Expand(rule, start, end)
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns sessions matching the query filters.
// Supported: resource_id, rule_id, status, from, to (RFC3339).
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	occs, err := h.Sessions.LoadOccurrences(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(occs))
}

// CreateSession records a one-off session (no recurrence rule).
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.ResourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id is required", nil)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_at (use RFC3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_at (use RFC3339)", err)
		return
	}
	interval, err := schedule.NewInterval(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interval", err)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return
	}

	id := schedule.SessionID(req.ID)
	if id == "" {
		id = schedule.SessionID(uuid.NewString())
	}

	occ := schedule.SessionOccurrence{
		ID:         id,
		ResourceID: schedule.ResourceID(req.ResourceID),
		SubjectID:  schedule.SubjectID(req.SubjectID),
		Interval:   interval,
		Price:      price,
		Status:     schedule.StatusUnpaid,
	}

	n, err := h.Sessions.SaveOccurrences(r.Context(), []schedule.SessionOccurrence{occ})
	if err != nil {
		h.serverError(w, "Failed to save session", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusConflict, "Session already exists", nil)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(occ))
}

// GetSession returns a single session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := schedule.SessionID(chi.URLParam(r, "id"))

	occ, err := h.Sessions.GetOccurrence(r.Context(), id)
	if err != nil {
		h.domainError(w, "Failed to get session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(*occ))
}

// DeleteSession cancels a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := schedule.SessionID(chi.URLParam(r, "id"))

	if err := h.Sessions.DeleteOccurrence(r.Context(), id); err != nil {
		h.domainError(w, "Failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkPaid transitions a session to paid.
// POST /api/sessions/{id}/pay
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, schedule.StatusPaid)
}

// WaiveSession transitions a session to waived.
// POST /api/sessions/{id}/waive
func (h *Handler) WaiveSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, schedule.StatusWaived)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to schedule.PaymentStatus) {
	id := schedule.SessionID(chi.URLParam(r, "id"))

	occ, err := h.Sessions.GetOccurrence(r.Context(), id)
	if err != nil {
		h.domainError(w, "Failed to get session", err)
		return
	}

	if err := billing.ValidateTransition(id, occ.Status, to); err != nil {
		writeError(w, http.StatusConflict, "Invalid status transition", err)
		return
	}

	// CAS on the status read above. A concurrent change surfaces as 409.
	if err := h.Sessions.UpdateStatus(r.Context(), id, occ.Status, to); err != nil {
		h.domainError(w, "Failed to update status", err)
		return
	}

	occ.Status = to
	writeJSON(w, http.StatusOK, toSessionDTO(*occ))
}

// ListUnpaid returns unpaid sessions, optionally scoped by resource_id
// and a from/to window.
func (h *Handler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	filter.Status = schedule.StatusUnpaid

	occs, err := h.Sessions.LoadOccurrences(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to list unpaid sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(occs))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// CreateInvoice invoices a selection of unpaid sessions. The selection is
// all-or-nothing: any invalid session rejects the whole request and no
// statuses change.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	selection := make([]schedule.SessionID, len(req.SessionIDs))
	set := schedule.NewOccurrenceSet()
	for i, raw := range req.SessionIDs {
		id := schedule.SessionID(raw)
		selection[i] = id

		occ, err := h.Sessions.GetOccurrence(r.Context(), id)
		if err != nil {
			h.domainError(w, "Failed to load session "+raw, err)
			return
		}
		set.Add(*occ)
	}

	// Validate the whole selection and compute the total in memory first.
	invoice, err := billing.NewLedger(set).CreateInvoice(selection)
	if err != nil {
		h.domainError(w, "Failed to create invoice", err)
		return
	}

	// The store re-validates inside one transaction; a race with a
	// concurrent payment or invoice surfaces here as 409.
	if err := h.Invoices.CommitInvoice(r.Context(), invoice); err != nil {
		h.domainError(w, "Failed to commit invoice", err)
		return
	}

	h.Log.Info("invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.Int("sessions", len(invoice.SessionIDs)),
		zap.String("total", invoice.TotalAmount.String()))

	writeJSON(w, http.StatusCreated, toInvoiceDTO(invoice))
}

// ListInvoices returns all invoices.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Invoices.ListInvoices(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.Invoices.GetInvoice(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// MonthlyStats aggregates sessions into calendar-month buckets.
// ?tz picks the bucketing timezone (default UTC); the usual session
// filters apply.
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tz", err)
			return
		}
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	occs, err := h.Sessions.LoadOccurrences(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to load sessions", err)
		return
	}

	buckets := schedule.Aggregate(occs, schedule.MonthKey(loc))

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	dtos := make([]MonthlyStatsDTO, 0, len(keys))
	for _, k := range keys {
		b := buckets[schedule.PeriodKey(k)]
		breakdown := make(map[string]int, len(b.StatusBreakdown))
		for s, n := range b.StatusBreakdown {
			breakdown[string(s)] = n
		}
		dtos = append(dtos, MonthlyStatsDTO{
			Month:           k,
			SessionCount:    b.OccurrenceCount,
			TotalHours:      b.TotalHours.String(),
			TotalRevenue:    b.TotalRevenue.String(),
			StatusBreakdown: breakdown,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Conflicts reports overlapping sessions. Sessions on different resources
// never conflict; checking is advisory and nothing is blocked.
func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	occs, err := h.Sessions.LoadOccurrences(r.Context(), filter)
	if err != nil {
		h.serverError(w, "Failed to load sessions", err)
		return
	}

	byID := make(map[schedule.SessionID]schedule.SessionOccurrence, len(occs))
	for _, o := range occs {
		byID[o.ID] = o
	}

	report := schedule.Detect(occs)
	dtos := make([]ConflictDTO, len(report.Pairs))
	for i, p := range report.Pairs {
		dtos[i] = ConflictDTO{
			SessionA:   string(p.A),
			SessionB:   string(p.B),
			ResourceID: string(byID[p.A].ResourceID),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func ruleFromRequest(req CreateRuleRequest) (schedule.RecurrenceRule, error) {
	weekdays, err := parseWeekdays(req.Weekdays)
	if err != nil {
		return schedule.RecurrenceRule{}, err
	}

	startClock, err := schedule.ParseLocalClock(req.StartClock)
	if err != nil {
		return schedule.RecurrenceRule{}, err
	}
	endClock, err := schedule.ParseLocalClock(req.EndClock)
	if err != nil {
		return schedule.RecurrenceRule{}, err
	}

	loc := time.UTC
	if req.Timezone != "" {
		if loc, err = time.LoadLocation(req.Timezone); err != nil {
			return schedule.RecurrenceRule{}, err
		}
	}

	from, err := time.ParseInLocation("2006-01-02", req.EffectiveFrom, loc)
	if err != nil {
		return schedule.RecurrenceRule{}, err
	}

	var until time.Time
	if req.EffectiveUntil != nil {
		if until, err = time.ParseInLocation("2006-01-02", *req.EffectiveUntil, loc); err != nil {
			return schedule.RecurrenceRule{}, err
		}
	}

	price, err := decimal.NewFromString(req.PricePerHour)
	if err != nil {
		return schedule.RecurrenceRule{}, err
	}

	id := schedule.RuleID(req.ID)
	if id == "" {
		id = schedule.RuleID(uuid.NewString())
	}

	return schedule.NewRecurrenceRule(schedule.RecurrenceRule{
		ID:             id,
		ResourceID:     schedule.ResourceID(req.ResourceID),
		SubjectID:      schedule.SubjectID(req.SubjectID),
		Weekdays:       weekdays,
		StartClock:     startClock,
		EndClock:       endClock,
		Location:       loc,
		EffectiveFrom:  from,
		EffectiveUntil: until,
		PricePerHour:   price,
		Active:         true,
	})
}

func filterFromQuery(r *http.Request) (schedule.OccurrenceFilter, error) {
	q := r.URL.Query()
	filter := schedule.OccurrenceFilter{
		ResourceID: schedule.ResourceID(q.Get("resource_id")),
		RuleID:     schedule.RuleID(q.Get("rule_id")),
		Status:     schedule.PaymentStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return schedule.OccurrenceFilter{}, errors.New("unknown status " + string(filter.Status))
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return schedule.OccurrenceFilter{}, err
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return schedule.OccurrenceFilter{}, err
		}
		filter.To = t
	}
	return filter, nil
}

// domainError maps domain errors to HTTP statuses.
func (h *Handler) domainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, schedule.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", err)
	case errors.Is(err, schedule.ErrStatusConflict), errors.Is(err, billing.ErrNotUnpaid):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, billing.ErrInvalidTransition):
		writeError(w, http.StatusConflict, message, err)
	case schedule.IsClientError(err), billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.serverError(w, message, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.Log.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
