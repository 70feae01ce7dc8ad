package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
)

type stubRuntime struct {
	content string
	err     error
	prompts []string
}

func (s *stubRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.prompts = append(s.prompts, req.Messages[0].Content)
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: s.content}}}, RequestID: "stub"}, nil
}

func fixture() *leads.Table {
	return &leads.Table{
		Columns: []string{leads.ColName, leads.ColCompany, leads.ColStatusStage, leads.ColSalesRep, leads.ColActionTaken, leads.ColActionDate},
		Rows: []leads.Lead{
			{Name: "Priya Nair", Company: "Acme", SalesRep: "Asha", StatusStage: "Contacted", ActionTaken: "Call scheduled", ActionDate: "2024-01-15"},
			{Name: "Omar Haddad", Company: "Globex", SalesRep: "Asha", StatusStage: "Proposal Sent", ActionTaken: "Sent proposal", ActionDate: "2024-01-16"},
			{Name: "Lena Park", Company: "Initech", SalesRep: "Ben", StatusStage: "New", ActionDate: "2024-01-16"},
		},
	}
}

func fixedNow() time.Time { return time.Date(2024, 1, 18, 9, 0, 0, 0, time.UTC) }

func newTestServer(rt ai.Runtime) *Server {
	o := Options{Table: fixture(), Logger: zap.NewNop(), ManagerPhone: "+91 99462 94194", Now: fixedNow}
	if rt != nil {
		o.Assistant = assistant.New(rt, assistant.WithModel("test-model"), assistant.WithClock(fixedNow))
	}
	return New(o)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthzAndRequestID(t *testing.T) {
	rec, body := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["ai"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReps(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reps", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var reps []repSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reps))
	assert.Equal(t, []repSummary{{Rep: "Asha", Leads: 2}, {Rep: "Ben", Leads: 1}}, reps)
}

func TestOverview(t *testing.T) {
	s := newTestServer(nil)
	rec, body := do(t, s, http.MethodGet, "/api/reps/Asha/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	o := body["overview"].(map[string]any)
	assert.EqualValues(t, 2, o["total_leads"])
	assert.EqualValues(t, 1, o["meetings_booked"])
	assert.EqualValues(t, 1, o["proposals_sent"])
	assert.Equal(t, "2024-01-16", body["last_activity"])

	rec, _ = do(t, s, http.MethodGet, "/api/reps/Nobody/overview", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(nil)
	rec, body := do(t, s, http.MethodGet, "/api/reps/Asha/snapshot?from=2024-01-16&to=2024-01-20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total_activities"])
	assert.EqualValues(t, 1, body["proposals_sent"])

	rec, body = do(t, s, http.MethodGet, "/api/reps/Asha/snapshot?from=2023-01-01&to=2023-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["no_activity"])
	assert.Equal(t, "No activity found for Asha from 2023-01-01 to 2023-01-02", body["message"])

	rec, _ = do(t, s, http.MethodGet, "/api/reps/Asha/snapshot?from=2024-01-16", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportIncludesShareLink(t *testing.T) {
	rec, body := do(t, newTestServer(nil), http.MethodGet, "/api/reps/Asha/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["report"], "📊 SALES PERFORMANCE REPORT")
	assert.True(t, strings.HasPrefix(body["share_url"].(string), "https://wa.me/919946294194?text="))
}

func TestAIEndpointsWithoutRuntime(t *testing.T) {
	rec, _ := do(t, newTestServer(nil), http.MethodPost, "/api/reps/Asha/priorities", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPriorities(t *testing.T) {
	rt := &stubRuntime{content: "1. Call Omar"}
	rec, body := do(t, newTestServer(rt), http.MethodPost, "/api/reps/Asha/priorities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1. Call Omar", body["content"])
	assert.Equal(t, true, body["generated"])
	require.Len(t, rt.prompts, 1)
	assert.Contains(t, rt.prompts[0], "Omar Haddad")
}

func TestCoachValidation(t *testing.T) {
	s := newTestServer(&stubRuntime{content: "ok"})
	rec, body := do(t, s, http.MethodPost, "/api/reps/Asha/coach", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Question")

	rec, _ = do(t, s, http.MethodPost, "/api/reps/Asha/coach", `{"question":"hi","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, s, http.MethodPost, "/api/reps/Asha/coach", `{"question":"How do I close Omar?"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coach", body["kind"])
}

func TestMessages(t *testing.T) {
	rt := &stubRuntime{content: "Hi Omar"}
	s := newTestServer(rt)

	rec, body := do(t, s, http.MethodPost, "/api/reps/Asha/messages", `{"lead":"omar haddad","type":"proposal_followup"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi Omar", body["content"])
	assert.Contains(t, rt.prompts[0], "PROPOSAL FOLLOW-UP")

	rec, body = do(t, s, http.MethodPost, "/api/reps/Asha/messages", `{"lead":"Omar Hadad"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["suggestions"], "Omar Haddad")

	rec, _ = do(t, s, http.MethodPost, "/api/reps/Asha/messages", `{"lead":"Omar Haddad","type":"carrier-pigeon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManagerReport(t *testing.T) {
	rt := &stubRuntime{content: "report text"}
	s := newTestServer(rt)

	// default window is the last 7 days before the fixed clock
	rec, body := do(t, s, http.MethodPost, "/api/reps/Asha/manager-report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "report text", body["content"])
	assert.Contains(t, rt.prompts[0], "Period: 2024-01-11 to 2024-01-18")

	rec, body = do(t, s, http.MethodPost, "/api/reps/Asha/manager-report", `{"from":"2023-01-01","to":"2023-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["generated"])
	assert.Equal(t, "No activity found for Asha from 2023-01-01 to 2023-01-31", body["content"])
	assert.Len(t, rt.prompts, 1)

	rec, _ = do(t, s, http.MethodPost, "/api/reps/Asha/manager-report", `{"from":"01/01/2023","to":"2023-01-31"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMapsTo429(t *testing.T) {
	rt := &stubRuntime{err: &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}}}
	rec, _ := do(t, newTestServer(rt), http.MethodPost, "/api/reps/Asha/priorities", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&stubRuntime{content: "x"})
	do(t, s, http.MethodGet, "/api/reps/Asha/snapshot", "")
	do(t, s, http.MethodPost, "/api/reps/Asha/priorities", "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	text := rec.Body.String()
	assert.Contains(t, text, `leadpilot_snapshots_total{outcome="ok"} 1`)
	assert.Contains(t, text, `leadpilot_generations_total{kind="priorities",status="ok"} 1`)
	assert.Contains(t, text, `leadpilot_http_requests_total{code="200",route="/api/reps/{rep}/snapshot"} 1`)
	assert.Contains(t, text, "leadpilot_generation_seconds_bucket")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	s := newTestServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
