// Package regfees computes SEC/FINRA regulatory fees, applied only on
// sells per spec.md §4.7.
package regfees

const (
	secFeeRate   = 5.10e-6
	finraTAFRate = 0.000145
	finraTAFCap  = 7.27
)

// Calculate returns the SEC fee plus FINRA TAF for a sell of shares at
// price, rounded to cents; the SEC fee is notional-based and uncapped,
// the TAF is per-share and capped at finraTAFCap.
func Calculate(shares, price float64, isSell bool) float64 {
	if !isSell || shares <= 0 {
		return 0
	}

	notional := shares * price
	sec := notional * secFeeRate

	taf := shares * finraTAFRate
	if taf > finraTAFCap {
		taf = finraTAFCap
	}

	return roundCents(sec + taf)
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
