package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/orchestrator"
	"solana-copurchase/internal/storage/memory"
	"solana-copurchase/internal/tracking"
)

func int64p(v int64) *int64 { return &v }

type fakeScanner struct {
	snap    *domain.SignalSnapshot
	scanErr error
	reports map[string]*domain.HoldingsReport
	scans   int
}

func (f *fakeScanner) RunScan(context.Context) (*orchestrator.ScanResult, error) {
	f.scans++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return &orchestrator.ScanResult{RunID: "run-1", SnapshotID: "snap-1", Candidates: f.snap.Candidates}, nil
}

func (f *fakeScanner) Signals(context.Context) *domain.SignalSnapshot { return f.snap }

func (f *fakeScanner) CheckHoldings(_ context.Context, token string) (*domain.HoldingsReport, error) {
	if f.snap.ScannedAt.IsZero() {
		return nil, orchestrator.ErrNoScanData
	}
	r, ok := f.reports[token]
	if !ok {
		return nil, orchestrator.ErrTokenNotFound
	}
	return r, nil
}

type fakeWalletScanner struct{}

func (fakeWalletScanner) Scan(_ context.Context, wallet string, _ time.Duration) []domain.PurchaseEvent {
	return []domain.PurchaseEvent{{Token: "T", Wallet: wallet, BlockTime: 100, PurchaseTime: domain.FormatUnix(100)}}
}

func sampleSnapshot() *domain.SignalSnapshot {
	return &domain.SignalSnapshot{
		ScannedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Candidates: []domain.TokenCandidate{{
			Token:          "T",
			WalletCount:    2,
			TokenFirstSeen: domain.FormatUnix(50),
			TokenTimestamp: int64p(50),
			Wallets: map[string]domain.WalletPurchase{
				"W1": {PurchaseTime: domain.FormatUnix(100), BlockTime: int64p(100)},
				"W2": {PurchaseTime: domain.FormatUnix(200), BlockTime: int64p(200)},
			},
		}},
	}
}

func newTestServer(t *testing.T, scanner *fakeScanner) *httptest.Server {
	t.Helper()
	wallets := memory.NewWalletStore()
	registry := tracking.NewRegistry(wallets)
	tracker := tracking.NewTracker(wallets, memory.NewTrackerResultStore(), fakeWalletScanner{}, zerolog.Nop())

	s := NewServer(scanner, registry, tracker, zerolog.Nop())
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	var body map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/health", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2023-11-14T22:13:20Z", body["timestamp"])
}

func TestSignals(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	var body struct {
		ScannedAt   string                  `json:"scanned_at"`
		TokensFound int                     `json:"tokens_found"`
		Data        []domain.TokenCandidate `json:"data"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/signals", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2024-01-02 03:04:05", body.ScannedAt)
	assert.Equal(t, 1, body.TokensFound)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "T", body.Data[0].Token)
}

func TestSignals_NeverScanned(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: &domain.SignalSnapshot{Candidates: []domain.TokenCandidate{}}})

	var body map[string]interface{}
	doJSON(t, http.MethodGet, srv.URL+"/api/signals", "", &body)
	assert.Equal(t, "Never", body["scanned_at"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestScan(t *testing.T) {
	scanner := &fakeScanner{snap: sampleSnapshot()}
	srv := newTestServer(t, scanner)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		var body map[string]interface{}
		status := doJSON(t, method, srv.URL+"/api/scan", "", &body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, float64(1), body["tokens_found"])
		assert.Equal(t, "snap-1", body["snapshot_id"])
	}
	assert.Equal(t, 2, scanner.scans)
}

func TestScan_Failure(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot(), scanErr: errors.New("disk full")})

	var body map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/api/scan", "", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", body["status"])
}

func TestHoldings(t *testing.T) {
	report := &domain.HoldingsReport{
		Token:        "T",
		TotalWallets: 2,
		StillHolding: 1,
		Sold:         1,
		Wallets: map[string]domain.WalletHolding{
			"W1": {StillHolding: true, Status: domain.StatusHolding, PurchaseTime: domain.FormatUnix(100)},
			"W2": {StillHolding: false, Status: domain.StatusSold, PurchaseTime: domain.FormatUnix(200)},
		},
	}
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot(), reports: map[string]*domain.HoldingsReport{"T": report}})

	var got domain.HoldingsReport
	status := doJSON(t, http.MethodGet, srv.URL+"/api/holdings/T", "", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, *report, got)

	var legacy domain.HoldingsReport
	status = doJSON(t, http.MethodGet, srv.URL+"/check_holdings/T", "", &legacy)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "T", legacy.Token)

	var missing map[string]string
	status = doJSON(t, http.MethodGet, srv.URL+"/api/holdings/Z", "", &missing)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Token not found", missing["error"])
}

func TestHoldings_NoScanData(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: &domain.SignalSnapshot{}})

	var body map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/api/holdings/T", "", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No scan data found", body["error"])
}

func TestWallets_Lifecycle(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})
	url := srv.URL + "/api/wallets"

	var res tracking.Result
	status := doJSON(t, http.MethodPost, url, `{"address":"  W1 ","name":""}`, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	require.Len(t, res.Wallets, 1)
	assert.Equal(t, "W1", res.Wallets[0].Address)
	assert.Equal(t, "Wallet 1", res.Wallets[0].Name)

	res = tracking.Result{}
	status = doJSON(t, http.MethodPost, url, `{"address":"W1"}`, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, res.Success)
	assert.Equal(t, tracking.MsgAlreadyTracked, res.Message)

	var list struct {
		Success bool                   `json:"success"`
		Wallets []domain.TrackedWallet `json:"wallets"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/custom_wallets", "", &list)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, list.Success)
	assert.Len(t, list.Wallets, 1)

	res = tracking.Result{}
	status = doJSON(t, http.MethodDelete, url, `{"address":"W1"}`, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)

	res = tracking.Result{}
	doJSON(t, http.MethodDelete, url, `{"address":"W1"}`, &res)
	assert.False(t, res.Success)
	assert.Equal(t, tracking.MsgNotTracked, res.Message)
}

func TestWallets_AddressRequired(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	for _, tc := range []struct{ method, body string }{
		{http.MethodPost, `{"address":"   "}`},
		{http.MethodPost, `not json`},
		{http.MethodDelete, ``},
	} {
		var res tracking.Result
		status := doJSON(t, tc.method, srv.URL+"/api/wallets", tc.body, &res)
		assert.Equal(t, http.StatusBadRequest, status, tc.body)
		assert.False(t, res.Success)
		assert.Equal(t, tracking.MsgAddressRequired, res.Message)
	}

	var res tracking.Result
	status := doJSON(t, http.MethodPut, srv.URL+"/api/wallets", `{}`, &res)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request method", res.Message)
}

func TestTrackScanAndResults(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	var empty tracking.ScanOutcome
	doJSON(t, http.MethodGet, srv.URL+"/api/wallets/scan", "", &empty)
	assert.False(t, empty.Success)
	assert.Equal(t, tracking.MsgNoWallets, empty.Message)

	doJSON(t, http.MethodPost, srv.URL+"/api/wallets", `{"address":"W1","name":"alpha"}`, nil)

	var out tracking.ScanOutcome
	status := doJSON(t, http.MethodGet, srv.URL+"/api/scan_custom_wallets?lookback_hours=abc", "", &out)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "alpha", out.Results[0].WalletName)
	assert.Equal(t, 1, out.Results[0].TotalTokens)

	var results struct {
		Success bool                       `json:"success"`
		Results []domain.TrackedScanResult `json:"results"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/wallets/results", "", &results)
	assert.True(t, results.Success)
	assert.Equal(t, out.Results, results.Results)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	resp, err := http.Get(srv.URL + "/api/export.csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"T", "W1", domain.FormatUnix(100), domain.FormatUnix(50), "2"}, records[1])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeScanner{snap: sampleSnapshot()})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
