package models

import "time"

// CatalogEntry is one (indicator, strategy) candidate from the fixed
// evaluation catalog.
type CatalogEntry struct {
	Indicator string
	Strategy  string
}

// BestIndicator is a ticker's canonical strategy choice, one row per ticker.
// UpdatedAt drives the staleness check.
type BestIndicator struct {
	Ticker      string
	Indicator   string
	Strategy    string
	TotalReturn *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OperationRecord is a known signal for a ticker. The same shape backs both
// the one-row-per-ticker last-operation table and the append-only operation
// log.
type OperationRecord struct {
	Ticker    string
	Action    Action
	Indicator string
	Strategy  string
	Timestamp time.Time
}

// Subscription groups the subscribers of one ticker.
type Subscription struct {
	Ticker  string
	UserIDs []int64
}

// DefaultCatalog seeds the catalog table on first start. The set mirrors the
// strategies shipped with the evaluation library.
func DefaultCatalog() []CatalogEntry {
	pairs := map[string][]string{
		"AwesomeOscillator": {"SMA_Crossover"},
		"BollingerBands":    {"Bollinger"},
		"IchimokuCloud": {
			"Ichimoku", "Kumo", "KumoChikou", "Kijun", "KijunPSAR",
			"TenkanKijun", "KumoTenkanKijun", "TenkanKijunPSAR",
			"KumoTenkanKijunPSAR", "KumoKiyunPSAR", "KumoChikouPSAR",
			"KumoKiyunChikouPSAR",
		},
		"KeltnerChannel":  {"KC"},
		"MovingAverage":   {"MA"},
		"MACD":            {"MACD"},
		"PSAR":            {"PSAR"},
		"RSI":             {"RSI", "RSI_Falling", "RSI_Divergence", "RSI_Cross"},
		"VolumeIndicator": {"Volume"},
		"Hold":            {"Hold"},
	}
	// Stable order keeps seeding deterministic.
	names := []string{
		"AwesomeOscillator", "BollingerBands", "IchimokuCloud",
		"KeltnerChannel", "MovingAverage", "MACD", "PSAR", "RSI",
		"VolumeIndicator", "Hold",
	}
	var out []CatalogEntry
	for _, name := range names {
		for _, strat := range pairs[name] {
			out = append(out, CatalogEntry{Indicator: name, Strategy: strat})
		}
	}
	return out
}
