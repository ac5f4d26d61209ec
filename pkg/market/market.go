// Package market fetches the spot prices shown in the daily digest header.
package market

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Symbols quoted in the digest.
const (
	SymbolBitcoin = "BTC-USD"
	SymbolGold    = "GC=F"
	SymbolEURCHF  = "EURCHF=X"
)

// NotAvailable stands in for any price that could not be fetched.
const NotAvailable = "N/A"

// Quote is the latest price of one instrument.
type Quote struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Provider returns the latest quote for a symbol.
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Snapshot holds display-formatted prices for the digest header.
type Snapshot struct {
	BTCPrice  string `json:"btc_price"`
	GoldPrice string `json:"gold_price"`
	EURCHF    string `json:"eur_chf"`
}

// EmptySnapshot has every field set to NotAvailable.
func EmptySnapshot() Snapshot {
	return Snapshot{BTCPrice: NotAvailable, GoldPrice: NotAvailable, EURCHF: NotAvailable}
}

var printer = message.NewPrinter(language.English)

// FetchSnapshot quotes the three digest instruments concurrently. Each field
// falls back to NotAvailable on its own.
func FetchSnapshot(ctx context.Context, p Provider) Snapshot {
	snap := EmptySnapshot()
	if p == nil {
		return snap
	}

	type target struct {
		symbol string
		dst    *string
		format func(float64) string
	}
	targets := []target{
		{SymbolBitcoin, &snap.BTCPrice, FormatUSD},
		{SymbolGold, &snap.GoldPrice, FormatUSD},
		{SymbolEURCHF, &snap.EURCHF, FormatRate},
	}

	var wg sync.WaitGroup
	for _, tgt := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := p.Quote(ctx, tgt.symbol)
			if err != nil {
				slog.Warn("Market quote unavailable", "symbol", tgt.symbol, "error", err)
				return
			}
			*tgt.dst = tgt.format(q.Price)
		}()
	}
	wg.Wait()

	return snap
}

// FormatUSD renders a whole-dollar amount with thousands separators.
func FormatUSD(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// FormatRate renders an exchange rate with four decimals.
func FormatRate(v float64) string {
	return printer.Sprintf("%.4f", v)
}
