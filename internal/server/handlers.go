package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/KaramelBytes/leadpilot-cli/internal/ai"
	"github.com/KaramelBytes/leadpilot-cli/internal/assistant"
	"github.com/KaramelBytes/leadpilot-cli/internal/leads"
	"github.com/KaramelBytes/leadpilot-cli/internal/metrics"
	"github.com/KaramelBytes/leadpilot-cli/internal/prompts"
	"github.com/KaramelBytes/leadpilot-cli/internal/report"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	return v
}

type coachRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type messageRequest struct {
	Lead string `json:"lead" validate:"required,max=200"`
	Type string `json:"type" validate:"omitempty,oneof=connection follow_up_1 proposal_followup default"`
}

type rangeRequest struct {
	From string `json:"from" validate:"omitempty,date"`
	To   string `json:"to" validate:"omitempty,date"`
}

type repSummary struct {
	Rep   string `json:"rep"`
	Leads int    `json:"leads"`
}

// decodeBody reads a JSON body into v and validates it. An empty body is
// accepted when allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("decode body: %w", err)
		}
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

func (s *Server) handleReps(w http.ResponseWriter, r *http.Request) {
	reps := s.table.Reps()
	out := make([]repSummary, 0, len(reps))
	for _, rep := range reps {
		out = append(out, repSummary{Rep: rep, Leads: len(s.table.ForRep(rep))})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	o, ok := metrics.ComputeRepOverview(s.table, rep)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no leads for rep %q", rep))
		return
	}
	resp := map[string]any{"overview": o}
	if last, ok := metrics.LastActivity(s.table, rep); ok {
		resp["last_activity"] = leads.FormatDate(last)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) queryRange(r *http.Request) (*metrics.DateRange, error) {
	q := r.URL.Query()
	return metrics.ParseRange(q.Get("from"), q.Get("to"))
}

func (s *Server) snapshot(rep string, rng *metrics.DateRange) (metrics.Snapshot, bool) {
	snap, ok := metrics.ComputeSnapshot(s.table, rep, rng)
	outcome := "ok"
	if !ok {
		outcome = "no_activity"
	}
	s.tel.snapshots.WithLabelValues(outcome).Inc()
	return snap, ok
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(rep, rng)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"no_activity": true, "message": report.NoActivity(rep, rng)})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(rep, rng)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"no_activity": true, "report": report.NoActivity(rep, rng)})
		return
	}
	text := report.Render(snap)
	resp := map[string]any{"report": text}
	if s.phone != "" {
		link, err := report.ShareLink(s.phone, text)
		if err != nil {
			s.log.Warn("share link", zap.Error(err))
		} else {
			resp["share_url"] = link
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	s.generate(w, r, assistant.KindPriorities, func(ctx context.Context) (assistant.Result, error) {
		return s.asst.Priorities(ctx, s.table, rep)
	})
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	var req coachRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.generate(w, r, assistant.KindCoach, func(ctx context.Context) (assistant.Result, error) {
		return s.asst.Coach(ctx, s.table, rep, req.Question)
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	var req messageRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lead, err := s.table.FindLead(rep, req.Lead)
	if err != nil {
		var nf *leads.NotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error(), "suggestions": nf.Suggestions})
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	kind := prompts.ParseMessageKind(req.Type)
	s.generate(w, r, assistant.KindFollowUp, func(ctx context.Context) (assistant.Result, error) {
		return s.asst.FollowUp(ctx, lead, kind)
	})
}

func (s *Server) handleManagerReport(w http.ResponseWriter, r *http.Request) {
	rep := chi.URLParam(r, "rep")
	var req rangeRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rng, err := metrics.ParseRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rng == nil {
		last := metrics.LastDays(s.now(), s.reportDays)
		rng = &last
	}
	s.generate(w, r, assistant.KindManagerReport, func(ctx context.Context) (assistant.Result, error) {
		return s.asst.ManagerReport(ctx, s.table, rep, rng)
	})
}

// generate runs fn against the assistant and records its outcome.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, kind string, fn func(context.Context) (assistant.Result, error)) {
	if s.asst == nil {
		writeError(w, http.StatusServiceUnavailable, assistant.ErrNoRuntime.Error())
		return
	}
	start := time.Now()
	res, err := fn(r.Context())
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case !res.Generated:
		status = "skipped"
	default:
		s.tel.genSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	s.tel.generations.WithLabelValues(kind, status).Inc()
	if err != nil {
		code := statusFor(err)
		if code >= 500 {
			s.log.Warn("generation failed", zap.String("kind", kind), zap.String("rid", RID(r.Context())), zap.Error(err))
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	var rl *ai.RateLimitError
	switch {
	case errors.Is(err, assistant.ErrNoRuntime):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrNoLeads), errors.Is(err, leads.ErrLeadNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrEmptyQuestion), errors.Is(err, metrics.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}
