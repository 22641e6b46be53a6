// Package api serves scan results and wallet registry operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/observability"
	"solana-copurchase/internal/orchestrator"
	"solana-copurchase/internal/reporting"
	"solana-copurchase/internal/tracking"
)

// DefaultLookbackHours applies when lookback_hours is absent or invalid.
const DefaultLookbackHours = 6

// Scanner runs and reads co-purchase scans.
type Scanner interface {
	RunScan(ctx context.Context) (*orchestrator.ScanResult, error)
	Signals(ctx context.Context) *domain.SignalSnapshot
	CheckHoldings(ctx context.Context, token string) (*domain.HoldingsReport, error)
}

// Registry manages tracked wallets.
type Registry interface {
	Add(ctx context.Context, address, name string) (*tracking.Result, error)
	Remove(ctx context.Context, address string) (*tracking.Result, error)
	List(ctx context.Context) ([]domain.TrackedWallet, error)
}

// Tracker scans tracked wallets.
type Tracker interface {
	ScanAll(ctx context.Context, lookback time.Duration) (*tracking.ScanOutcome, error)
	Results(ctx context.Context) []domain.TrackedScanResult
}

// Server holds the HTTP handlers.
type Server struct {
	scanner  Scanner
	registry Registry
	tracker  Tracker
	logger   zerolog.Logger
	now      func() time.Time
}

// NewServer creates a Server.
func NewServer(scanner Scanner, registry Registry, tracker Tracker, logger zerolog.Logger) *Server {
	return &Server{
		scanner:  scanner,
		registry: registry,
		tracker:  tracker,
		logger:   logger,
		now:      time.Now,
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/scan", s.handleScan)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/holdings/{token}", s.handleHoldings)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)

	mux.HandleFunc("/api/wallets", s.handleWallets)
	mux.HandleFunc("GET /api/wallets/scan", s.handleTrackScan)
	mux.HandleFunc("POST /api/wallets/scan", s.handleTrackScan)
	mux.HandleFunc("GET /api/wallets/results", s.handleTrackResults)

	// Legacy paths.
	mux.HandleFunc("GET /check_holdings/{token}", s.handleHoldings)
	mux.HandleFunc("/api/custom_wallets", s.handleWallets)
	mux.HandleFunc("GET /api/scan_custom_wallets", s.handleTrackScan)
	mux.HandleFunc("GET /api/custom_tracker_results", s.handleTrackResults)

	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

type signalsResponse struct {
	ScannedAt   string                  `json:"scanned_at"`
	TokensFound int                     `json:"tokens_found"`
	Data        []domain.TokenCandidate `json:"data"`
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	snap := s.scanner.Signals(r.Context())
	scannedAt := "Never"
	if !snap.ScannedAt.IsZero() {
		scannedAt = domain.FormatTime(snap.ScannedAt)
	}
	writeJSON(w, http.StatusOK, signalsResponse{
		ScannedAt:   scannedAt,
		TokensFound: len(snap.Candidates),
		Data:        snap.Candidates,
	})
}

type scanResponse struct {
	Status      string                  `json:"status"`
	TokensFound int                     `json:"tokens_found"`
	Data        []domain.TokenCandidate `json:"data"`
	RunID       string                  `json:"run_id,omitempty"`
	SnapshotID  string                  `json:"snapshot_id,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.scanner.RunScan(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("scan failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Status:      "success",
		TokensFound: len(res.Candidates),
		Data:        res.Candidates,
		RunID:       res.RunID,
		SnapshotID:  res.SnapshotID,
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	report, err := s.scanner.CheckHoldings(r.Context(), token)
	switch {
	case errors.Is(err, orchestrator.ErrNoScanData):
		writeError(w, http.StatusNotFound, "No scan data found")
		return
	case errors.Is(err, orchestrator.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "Token not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("token", token).Msg("holdings check failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap := s.scanner.Signals(r.Context())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="copurchase_signals.csv"`)
	if err := reporting.WriteCandidatesCSV(w, snap.Candidates); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

type walletRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type walletsResponse struct {
	Success bool                   `json:"success"`
	Wallets []domain.TrackedWallet `json:"wallets"`
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		wallets, err := s.registry.List(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("wallet registry unreadable")
			wallets = []domain.TrackedWallet{}
		}
		writeJSON(w, http.StatusOK, walletsResponse{Success: true, Wallets: wallets})

	case http.MethodPost, http.MethodDelete:
		var req walletRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // malformed body reads as empty
		req.Address = strings.TrimSpace(req.Address)
		if req.Address == "" {
			writeJSON(w, http.StatusBadRequest, tracking.Result{Message: tracking.MsgAddressRequired})
			return
		}

		var (
			res *tracking.Result
			err error
		)
		if r.Method == http.MethodPost {
			res, err = s.registry.Add(ctx, req.Address, req.Name)
		} else {
			res, err = s.registry.Remove(ctx, req.Address)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("wallet", req.Address).Msg("registry update failed")
			writeJSON(w, http.StatusInternalServerError, tracking.Result{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)

	default:
		writeJSON(w, http.StatusBadRequest, tracking.Result{Message: "Invalid request method"})
	}
}

func (s *Server) handleTrackScan(w http.ResponseWriter, r *http.Request) {
	hours := DefaultLookbackHours
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}

	out, err := s.tracker.ScanAll(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		s.logger.Error().Err(err).Msg("tracked wallet scan failed")
		writeJSON(w, http.StatusInternalServerError, tracking.ScanOutcome{Message: err.Error(), Results: []domain.TrackedScanResult{}})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type trackResultsResponse struct {
	Success bool                       `json:"success"`
	Results []domain.TrackedScanResult `json:"results"`
}

func (s *Server) handleTrackResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, trackResultsResponse{Success: true, Results: s.tracker.Results(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
