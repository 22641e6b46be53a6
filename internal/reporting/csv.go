// Package reporting renders scan output as CSV and terminal tables.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"solana-copurchase/internal/domain"
)

// CandidateCSVHeader is the column layout of the signal export.
var CandidateCSVHeader = []string{"token", "wallet", "purchase_time", "token_first_seen", "total_wallets"}

// TrackerCSVHeader is the column layout of the tracked-wallet export.
var TrackerCSVHeader = []string{"wallet_address", "wallet_name", "token", "first_purchase", "total_buys", "scanned_at"}

// WriteCandidatesCSV writes one row per (candidate, wallet). Candidates keep
// their order; wallets within a candidate are sorted by address.
func WriteCandidatesCSV(w io.Writer, candidates []domain.TokenCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CandidateCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range candidates {
		total := strconv.Itoa(c.WalletCount)
		for _, addr := range sortedWallets(c.Wallets) {
			row := []string{c.Token, addr, c.Wallets[addr].PurchaseTime, c.TokenFirstSeen, total}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTrackerCSV writes one row per (wallet, token); wallets with no buys
// get a single row with empty token columns.
func WriteTrackerCSV(w io.Writer, results []domain.TrackedScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrackerCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		if len(r.TokensBought) == 0 {
			if err := cw.Write([]string{r.WalletAddress, r.WalletName, "", "", "0", r.ScannedAt}); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			continue
		}
		for _, t := range r.TokensBought {
			row := []string{r.WalletAddress, r.WalletName, t.Token, t.FirstPurchase, strconv.Itoa(t.TotalBuys), r.ScannedAt}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderCandidatesCSV returns the signal export as a string.
func RenderCandidatesCSV(candidates []domain.TokenCandidate) (string, error) {
	var sb strings.Builder
	if err := WriteCandidatesCSV(&sb, candidates); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func sortedWallets(m map[string]domain.WalletPurchase) []string {
	out := make([]string, 0, len(m))
	for addr := range m {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
