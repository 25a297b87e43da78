// Package api exposes the growth wallet service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"growth-wallet/internal/autopilot"
	"growth-wallet/internal/domain"
	"growth-wallet/internal/idhash"
	"growth-wallet/internal/observability"
	"growth-wallet/internal/reporting"
	"growth-wallet/internal/storage"
	"growth-wallet/internal/strategy"
	"growth-wallet/internal/verification"
	"growth-wallet/internal/wallet"
)

// maxBodyBytes bounds request bodies; every payload is a tiny JSON object.
const maxBodyBytes = 1 << 12

// Options configures the HTTP handler.
type Options struct {
	Service *wallet.Service
	Reports *reporting.Generator
	// Verifier serves /verify when set.
	Verifier *verification.ReplayVerifier

	// Stream serves /ws when set.
	Stream http.Handler
	// Metrics serves /metrics; defaults to the global registry.
	Metrics http.Handler

	Logger *zap.Logger
	Clock  func() time.Time
}

// Server routes HTTP requests to the service.
type Server struct {
	svc     *wallet.Service
	reports *reporting.Generator
	verify  *verification.ReplayVerifier
	logger  *zap.Logger
	now     func() time.Time
	started time.Time
	mux     *http.ServeMux
}

// NewServer builds the handler and registers all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		svc:     opts.Service,
		reports: opts.Reports,
		verify:  opts.Verifier,
		logger:  opts.Logger,
		now:     opts.Clock,
		mux:     http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.Handler()
	}

	// Health check
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", metrics)
	if opts.Stream != nil {
		s.mux.Handle("GET /ws", opts.Stream)
	}
	s.mux.HandleFunc("GET /status", s.handleStatus)

	// Catalog
	s.mux.HandleFunc("GET /products", s.handleProducts)
	s.mux.HandleFunc("POST /products/{id}/select", s.handleSelect)
	s.mux.HandleFunc("GET /products/{id}/history", s.handleProductHistory)
	s.mux.HandleFunc("GET /strategies", s.handleStrategies)

	// Simulation
	s.mux.HandleFunc("POST /step", s.handleStep)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /history", s.handleHistory)

	// Autopilot
	s.mux.HandleFunc("POST /autopilot", s.handleAutopilot)
	s.mux.HandleFunc("GET /autopilot/log", s.handleAutopilotLog)

	// Reports
	s.mux.HandleFunc("GET /report.csv", s.handleReportCSV)
	s.mux.HandleFunc("GET /report.md", s.handleReportMarkdown)
	s.mux.HandleFunc("GET /verify", s.handleVerify)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	SessionID string `json:"session_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Weeks     int    `json:"weeks"`
	Autopilot bool   `json:"autopilot"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "idle",
		Uptime: s.now().Sub(s.started).Round(time.Second).String(),
	}
	if sess, err := s.svc.Session(); err == nil {
		resp.Status = "running"
		resp.SessionID = sess.SessionID
		resp.ProductID = sess.Product.ID
		resp.Weeks = sess.State.WeeksRunning
		resp.Autopilot = sess.Autopilot
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Products(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.SelectProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleProductHistory lists the persisted weeks of one product across all
// of its sessions.
func (s *Server) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ProductHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.RecordedEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	kinds := strategy.All()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	writeJSON(w, http.StatusOK, names)
}

// StepRequest is the body of POST /step. The strategy may also be given as
// the "strategy" query parameter.
type StepRequest struct {
	Strategy string `json:"strategy"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	req := StepRequest{Strategy: r.URL.Query().Get("strategy")}
	if req.Strategy == "" {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.svc.Step(r.Context(), req.Strategy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Reset(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Session()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.History()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// AutopilotRequest is the body of POST /autopilot.
type AutopilotRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleAutopilot(w http.ResponseWriter, r *http.Request) {
	var req AutopilotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Enabled == nil {
		s.writeError(w, r, fmt.Errorf("%w: missing \"enabled\"", errBadRequest))
		return
	}

	if err := s.svc.SetAutopilot(r.Context(), *req.Enabled); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// LogLineResponse is one rendered autopilot log line.
type LogLineResponse struct {
	autopilot.LogLine
	Line string `json:"line"`
}

func (s *Server) handleAutopilotLog(w http.ResponseWriter, r *http.Request) {
	lines, err := s.svc.AutopilotLog()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]LogLineResponse, len(lines))
	for i, l := range lines {
		resp[i] = LogLineResponse{LogLine: l, Line: l.String()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	report, err := s.generateReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.SessionID+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderCSV(report)))
}

func (s *Server) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	report, err := s.generateReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func (s *Server) generateReport(r *http.Request) (*reporting.Report, error) {
	if s.reports == nil {
		return nil, errReportsDisabled
	}
	sess, err := s.svc.Session()
	if err != nil {
		return nil, err
	}
	return s.reports.Generate(r.Context(), sess.SessionID, sess.Product, sess.State)
}

// handleVerify replays the persisted history of the session named by the
// "session" query parameter, or of the active session.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.verify == nil {
		s.writeError(w, r, errReportsDisabled)
		return
	}

	sessionID, product, err := s.verifyTarget(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.verify.VerifySession(r.Context(), sessionID, product)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !report.Match {
		s.logger.Warn("session replay diverged",
			zap.String("session_id", sessionID),
			zap.Int("divergences", len(report.Divergences)))
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) verifyTarget(r *http.Request) (string, domain.Product, error) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sess, err := s.svc.Session()
		if err != nil {
			return "", domain.Product{}, err
		}
		return sess.SessionID, sess.Product, nil
	}

	if _, err := idhash.ParseSessionID(sessionID); err != nil {
		return "", domain.Product{}, fmt.Errorf("%w: session: %v", errBadRequest, err)
	}
	entries, err := s.verify.Entries(r.Context(), sessionID)
	if err != nil {
		return "", domain.Product{}, err
	}
	p, err := s.svc.Product(r.Context(), entries[0].ProductID)
	if err != nil {
		return "", domain.Product{}, err
	}
	return sessionID, *p, nil
}

var (
	errBadRequest      = errors.New("bad request")
	errReportsDisabled = errors.New("reports require a history store")
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, strategy.ErrInvalidStrategy):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, reporting.ErrNoHistory),
		errors.Is(err, verification.ErrNoHistory):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrNoActiveProduct):
		return http.StatusConflict
	case errors.Is(err, errReportsDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, wallet.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
