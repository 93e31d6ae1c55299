package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/schedule-engine/api"
	"github.com/warp/schedule-engine/schedule/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := store.NewMemory()
	handler := api.NewHandler(mem, mem, zap.NewNop())
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createRule(t *testing.T, srv *httptest.Server) api.RuleDTO {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/rules", api.CreateRuleRequest{
		ID:            "rule-1",
		ResourceID:    "tutor-1",
		SubjectID:     "math",
		Weekdays:      []string{"monday", "wednesday"},
		StartClock:    "09:00",
		EndClock:      "10:30",
		Timezone:      "UTC",
		EffectiveFrom: "2025-09-01",
		PricePerHour:  "40",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	var dto api.RuleDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	return dto
}

func generateSeptember(t *testing.T, srv *httptest.Server) api.GenerateResponse {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/generate", api.GenerateRequest{Month: "2025-09"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var out api.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

// =============================================================================
// RULE ENDPOINT TESTS
// =============================================================================

func TestCreateRule_AndGet(t *testing.T) {
	srv := newTestServer(t)

	dto := createRule(t, srv)
	assert.Equal(t, "rule-1", dto.ID)
	assert.Equal(t, []string{"monday", "wednesday"}, dto.Weekdays)
	assert.True(t, dto.Active)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/rules/rule-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.RuleDTO
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, dto, got)
}

func TestCreateRule_BadWeekday_Rejected(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/rules", api.CreateRuleRequest{
		ResourceID:    "tutor-1",
		Weekdays:      []string{"funday"},
		StartClock:    "09:00",
		EndClock:      "10:00",
		EffectiveFrom: "2025-09-01",
		PricePerHour:  "40",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRule_Missing(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/rules/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleRule_DisablesGeneration(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/rules/rule-1/toggle", api.ToggleRuleRequest{Active: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.RuleDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.False(t, dto.Active)

	// Generation now finds no active rules.
	out := generateSeptember(t, srv)
	assert.Zero(t, out.Inserted)
}

func TestPreviewRule_DoesNotPersist(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/rules/rule-1/preview?from=2025-09-01&to=2025-09-30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var preview api.RulePreviewResponse
	require.NoError(t, json.Unmarshal(body, &preview))
	assert.Equal(t, 9, preview.Count, "5 Mondays + 4 Wednesdays")

	resp, body = doJSON(t, srv, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []api.SessionDTO
	require.NoError(t, json.Unmarshal(body, &sessions))
	assert.Empty(t, sessions, "preview must not create sessions")
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerate_Idempotent(t *testing.T) {
	// GIVEN: A rule and one generation run for September
	// WHEN: Running generation again for the same month
	// THEN: Nothing new is inserted

	srv := newTestServer(t)
	createRule(t, srv)

	first := generateSeptember(t, srv)
	assert.Equal(t, 9, first.Inserted)
	assert.Zero(t, first.Skipped)

	second := generateSeptember(t, srv)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 9, second.Skipped)
}

func TestGenerate_PaidSessionSurvivesRerun(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/rule-1:2025-09-01/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	generateSeptember(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/sessions/rule-1:2025-09-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dto api.SessionDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, "paid", dto.Status)
}

func TestPreviewGenerate_CountsWithoutWriting(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/generate/preview?month=2025-09", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 9, out.Candidate)
	assert.Equal(t, 9, out.Inserted)

	resp, body = doJSON(t, srv, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []api.SessionDTO
	require.NoError(t, json.Unmarshal(body, &sessions))
	assert.Empty(t, sessions)
}

// =============================================================================
// SESSION ENDPOINT TESTS
// =============================================================================

func TestCreateSession_OneOff(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/sessions", api.CreateSessionRequest{
		ID:         "adhoc-1",
		ResourceID: "tutor-1",
		StartAt:    "2025-09-05T14:00:00Z",
		EndAt:      "2025-09-05T15:30:00Z",
		Price:      "55",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	var dto api.SessionDTO
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, "adhoc-1", dto.ID)
	assert.Empty(t, dto.RuleID)
	assert.Equal(t, "1.5", dto.Hours)
	assert.Equal(t, "unpaid", dto.Status)
}

func TestCreateSession_InvalidInterval_Rejected(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions", api.CreateSessionRequest{
		ResourceID: "tutor-1",
		StartAt:    "2025-09-05T15:00:00Z",
		EndAt:      "2025-09-05T14:00:00Z",
		Price:      "55",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPayThenWaive_Conflict(t *testing.T) {
	// GIVEN: A paid session
	// WHEN: Waiving it
	// THEN: 409, paid is absorbing

	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	id := "rule-1:2025-09-01"
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/waive", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListUnpaid_ExcludesSettled(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/rule-1:2025-09-01/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/sessions/unpaid?resource_id=tutor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions []api.SessionDTO
	require.NoError(t, json.Unmarshal(body, &sessions))
	assert.Len(t, sessions, 8)
	for _, s := range sessions {
		assert.Equal(t, "unpaid", s.Status)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	resp, _ := doJSON(t, srv, http.MethodDelete, "/api/sessions/rule-1:2025-09-01", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/sessions/rule-1:2025-09-01", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// INVOICE ENDPOINT TESTS
// =============================================================================

func TestCreateInvoice_Flow(t *testing.T) {
	// GIVEN: Two generated unpaid sessions at 60 each
	// WHEN: Invoicing both
	// THEN: Total 120, sessions flip to invoiced, re-invoicing conflicts

	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	ids := []string{"rule-1:2025-09-01", "rule-1:2025-09-03"}
	resp, body := doJSON(t, srv, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{SessionIDs: ids})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	var invoice api.InvoiceDTO
	require.NoError(t, json.Unmarshal(body, &invoice))
	assert.Equal(t, "120", invoice.TotalAmount)
	assert.Equal(t, ids, invoice.SessionIDs)

	for _, id := range ids {
		resp, body := doJSON(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var dto api.SessionDTO
		require.NoError(t, json.Unmarshal(body, &dto))
		assert.Equal(t, "invoiced", dto.Status)
	}

	// Re-invoicing the same sessions conflicts and changes nothing.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{SessionIDs: ids})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, srv, http.MethodGet, "/api/invoices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var invoices []api.InvoiceDTO
	require.NoError(t, json.Unmarshal(body, &invoices))
	assert.Len(t, invoices, 1)
}

func TestCreateInvoice_EmptySelection(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateInvoice_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/invoices", api.CreateInvoiceRequest{
		SessionIDs: []string{"ghost"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// REPORTING ENDPOINT TESTS
// =============================================================================

func TestMonthlyStats(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/rule-1:2025-09-01/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/stats/monthly", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats []api.MonthlyStatsDTO
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Len(t, stats, 1)

	sept := stats[0]
	assert.Equal(t, "2025-09", sept.Month)
	assert.Equal(t, 9, sept.SessionCount)
	assert.Equal(t, "13.5", sept.TotalHours)
	assert.Equal(t, "60", sept.TotalRevenue, "only the paid session counts as revenue")
	assert.Equal(t, 8, sept.StatusBreakdown["unpaid"])
	assert.Equal(t, 1, sept.StatusBreakdown["paid"])
}

func TestConflicts_OverlappingOneOff(t *testing.T) {
	srv := newTestServer(t)
	createRule(t, srv)
	generateSeptember(t, srv)

	// Overlaps the Monday Sept 1 09:00-10:30 slot on the same tutor.
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/sessions", api.CreateSessionRequest{
		ID:         "clash",
		ResourceID: "tutor-1",
		StartAt:    "2025-09-01T10:00:00Z",
		EndAt:      "2025-09-01T11:00:00Z",
		Price:      "55",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/conflicts?resource_id=tutor-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var conflicts []api.ConflictDTO
	require.NoError(t, json.Unmarshal(body, &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "clash", conflicts[0].SessionA)
	assert.Equal(t, "rule-1:2025-09-01", conflicts[0].SessionB)
	assert.Equal(t, "tutor-1", conflicts[0].ResourceID)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(fmt.Sprintf("%s/healthz", srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
