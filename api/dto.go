/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Rules:
    RuleDTO, CreateRuleRequest, RulePreviewResponse

  Sessions:
    SessionDTO, CreateSessionRequest, GenerateRequest, GenerateResponse

  Billing:
    InvoiceDTO, CreateInvoiceRequest

  Reporting:
    MonthlyStatsDTO, ConflictDTO

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/rule.go: Domain rule type
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/schedule-engine/billing"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RuleDTO represents a recurrence rule in API responses.
type RuleDTO struct {
	ID             string   `json:"id"`
	ResourceID     string   `json:"resource_id"`
	SubjectID      string   `json:"subject_id,omitempty"`
	Weekdays       []string `json:"weekdays"`
	StartClock     string   `json:"start_clock"`
	EndClock       string   `json:"end_clock"`
	Timezone       string   `json:"timezone"`
	EffectiveFrom  string   `json:"effective_from"`
	EffectiveUntil *string  `json:"effective_until,omitempty"`
	PricePerHour   string   `json:"price_per_hour"`
	Active         bool     `json:"active"`
}

// CreateRuleRequest is the request to create a recurrence rule.
type CreateRuleRequest struct {
	ID             string   `json:"id,omitempty"` // optional; generated when empty
	ResourceID     string   `json:"resource_id"`
	SubjectID      string   `json:"subject_id,omitempty"`
	Weekdays       []string `json:"weekdays"`
	StartClock     string   `json:"start_clock"`
	EndClock       string   `json:"end_clock"`
	Timezone       string   `json:"timezone,omitempty"` // defaults to UTC
	EffectiveFrom  string   `json:"effective_from"`     // YYYY-MM-DD
	EffectiveUntil *string  `json:"effective_until,omitempty"`
	PricePerHour   string   `json:"price_per_hour"`
}

// ToggleRuleRequest enables or disables generation for a rule.
type ToggleRuleRequest struct {
	Active bool `json:"active"`
}

// RulePreviewResponse lists the occurrences a rule would produce in a
// window, without persisting anything.
type RulePreviewResponse struct {
	RuleID   string       `json:"rule_id"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Count    int          `json:"count"`
	Sessions []SessionDTO `json:"sessions"`
}

// SessionDTO represents a session occurrence in API responses.
type SessionDTO struct {
	ID         string `json:"id"`
	RuleID     string `json:"rule_id,omitempty"`
	ResourceID string `json:"resource_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Hours      string `json:"hours"`
	Price      string `json:"price"`
	Status     string `json:"status"`
}

// CreateSessionRequest is the request to record a one-off session.
type CreateSessionRequest struct {
	ID         string `json:"id,omitempty"` // optional; generated when empty
	ResourceID string `json:"resource_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	StartAt    string `json:"start_at"` // RFC3339
	EndAt      string `json:"end_at"`   // RFC3339
	Price      string `json:"price"`
}

// GenerateRequest asks the engine to materialize sessions for a month.
type GenerateRequest struct {
	Month string `json:"month"` // YYYY-MM
}

// GenerateResponse reports the outcome of a generation run.
type GenerateResponse struct {
	Month     string `json:"month"`
	Rules     int    `json:"rules"`
	Candidate int    `json:"candidate"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
}

// CreateInvoiceRequest is the request to invoice a selection of sessions.
type CreateInvoiceRequest struct {
	SessionIDs []string `json:"session_ids"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID          string   `json:"id"`
	SessionIDs  []string `json:"session_ids"`
	TotalAmount string   `json:"total_amount"`
	GeneratedAt string   `json:"generated_at"`
}

// MonthlyStatsDTO is one calendar-month aggregation bucket.
type MonthlyStatsDTO struct {
	Month           string         `json:"month"` // YYYY-MM
	SessionCount    int            `json:"session_count"`
	TotalHours      string         `json:"total_hours"`
	TotalRevenue    string         `json:"total_revenue"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
}

// ConflictDTO is one pair of overlapping sessions on a resource.
type ConflictDTO struct {
	SessionA   string `json:"session_a"`
	SessionB   string `json:"session_b"`
	ResourceID string `json:"resource_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", schedule.ErrInvalidRule, n)
		}
		days = append(days, d)
	}
	return days, nil
}

func weekdayStrings(days []time.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = strings.ToLower(d.String())
	}
	return out
}

func toRuleDTO(r schedule.RecurrenceRule) RuleDTO {
	dto := RuleDTO{
		ID:            string(r.ID),
		ResourceID:    string(r.ResourceID),
		SubjectID:     string(r.SubjectID),
		Weekdays:      weekdayStrings(r.Weekdays),
		StartClock:    r.StartClock.String(),
		EndClock:      r.EndClock.String(),
		Timezone:      r.Location.String(),
		EffectiveFrom: r.EffectiveFrom.Format("2006-01-02"),
		PricePerHour:  r.PricePerHour.String(),
		Active:        r.Active,
	}
	if r.Bounded() {
		until := r.EffectiveUntil.Format("2006-01-02")
		dto.EffectiveUntil = &until
	}
	return dto
}

func toSessionDTO(o schedule.SessionOccurrence) SessionDTO {
	return SessionDTO{
		ID:         string(o.ID),
		RuleID:     string(o.RuleID),
		ResourceID: string(o.ResourceID),
		SubjectID:  string(o.SubjectID),
		StartAt:    o.Interval.Start().Format(time.RFC3339),
		EndAt:      o.Interval.End().Format(time.RFC3339),
		Hours:      o.Hours().String(),
		Price:      o.Price.String(),
		Status:     string(o.Status),
	}
}

func toSessionDTOs(occs []schedule.SessionOccurrence) []SessionDTO {
	dtos := make([]SessionDTO, len(occs))
	for i, o := range occs {
		dtos[i] = toSessionDTO(o)
	}
	return dtos
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	ids := make([]string, len(inv.SessionIDs))
	for i, id := range inv.SessionIDs {
		ids[i] = string(id)
	}
	return InvoiceDTO{
		ID:          inv.ID,
		SessionIDs:  ids,
		TotalAmount: inv.TotalAmount.String(),
		GeneratedAt: inv.GeneratedAt.Format(time.RFC3339),
	}
}
