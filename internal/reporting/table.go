package reporting

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"solana-copurchase/internal/domain"
)

var (
	holdingColor = color.New(color.FgGreen, color.Bold)
	soldColor    = color.New(color.FgRed)
	headingColor = color.New(color.FgCyan, color.Bold)
)

// ShortAddress abbreviates a base58 address as "abcd...wxyz".
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// PrintCandidates renders a signal summary table.
func PrintCandidates(w io.Writer, candidates []domain.TokenCandidate) {
	headingColor.Fprintf(w, "Co-purchase signals: %d tokens\n", len(candidates))
	if len(candidates) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Token", "Symbol", "Wallets", "First Seen"})
	table.SetAutoWrapText(false)
	for i, c := range candidates {
		table.Append([]string{
			strconv.Itoa(i + 1),
			c.Token,
			c.Symbol,
			strconv.Itoa(c.WalletCount),
			c.TokenFirstSeen,
		})
	}
	table.Render()
}

// PrintHoldings renders a holdings report, wallets sorted by address.
func PrintHoldings(w io.Writer, report *domain.HoldingsReport) {
	headingColor.Fprintf(w, "Holdings for %s\n", report.Token)
	fmt.Fprintf(w, "total: %d  holding: %s  sold: %s\n",
		report.TotalWallets,
		holdingColor.Sprint(report.StillHolding),
		soldColor.Sprint(report.Sold))

	addrs := make([]string, 0, len(report.Wallets))
	for addr := range report.Wallets {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Wallet", "Status", "Purchase Time"})
	table.SetAutoWrapText(false)
	for _, addr := range addrs {
		h := report.Wallets[addr]
		status := soldColor.Sprint(string(h.Status))
		if h.StillHolding {
			status = holdingColor.Sprint(string(h.Status))
		}
		table.Append([]string{addr, status, h.PurchaseTime})
	}
	table.Render()
}

// PrintTrackedWallets renders the wallet registry.
func PrintTrackedWallets(w io.Writer, wallets []domain.TrackedWallet) {
	headingColor.Fprintf(w, "Tracked wallets: %d\n", len(wallets))
	if len(wallets) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Address", "Added"})
	table.SetAutoWrapText(false)
	for _, wl := range wallets {
		table.Append([]string{wl.Name, wl.Address, wl.AddedAt})
	}
	table.Render()
}

// PrintTrackerResults renders per-wallet token summaries.
func PrintTrackerResults(w io.Writer, results []domain.TrackedScanResult) {
	for _, r := range results {
		headingColor.Fprintf(w, "%s (%s): %d tokens\n", r.WalletName, ShortAddress(r.WalletAddress), r.TotalTokens)
		if len(r.TokensBought) == 0 {
			continue
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Token", "First Purchase", "Buys"})
		table.SetAutoWrapText(false)
		for _, t := range r.TokensBought {
			table.Append([]string{t.Token, t.FirstPurchase, strconv.Itoa(t.TotalBuys)})
		}
		table.Render()
	}
}
