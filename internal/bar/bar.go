// Package bar defines the minute-bar record and the streaming source
// contract that feeds the rest of the simulation pipeline.
package bar

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/argoquant/dexterio/pkg/errors"
)

// Bar is an immutable OHLCV record for one symbol at one UTC instant.
type Bar struct {
	Timestamp time.Time `yaml:"ts" json:"ts" csv:"ts" validate:"required"`
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Open      float64   `yaml:"open" json:"open" csv:"open" validate:"gte=0"`
	High      float64   `yaml:"high" json:"high" csv:"high" validate:"gte=0"`
	Low       float64   `yaml:"low" json:"low" csv:"low" validate:"gte=0"`
	Close     float64   `yaml:"close" json:"close" csv:"close" validate:"gte=0"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume" validate:"gte=0"`
}

// Validate checks the bar's own fields and the OHLC ordering invariant
// l <= min(o,c) <= max(o,c) <= h.
func (b *Bar) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid bar", err)
	}

	lo := min(b.Open, b.Close)
	hi := max(b.Open, b.Close)

	if b.Low > lo || hi > b.High {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"bar OHLC ordering violated for %s at %s: l=%.4f o=%.4f c=%.4f h=%.4f",
			b.Symbol, b.Timestamp, b.Low, b.Open, b.Close, b.High)
	}

	return nil
}

// BodyRange returns the body and full-range extent, used throughout the
// candlestick pattern engine for body/range ratio calculations.
func (b *Bar) BodyRange() (body, rng float64) {
	body = max(b.Open, b.Close) - min(b.Open, b.Close)
	rng = b.High - b.Low

	return body, rng
}

// Bullish reports whether the bar closed above its open.
func (b *Bar) Bullish() bool {
	return b.Close > b.Open
}

// Bearish reports whether the bar closed below its open.
func (b *Bar) Bearish() bool {
	return b.Close < b.Open
}
