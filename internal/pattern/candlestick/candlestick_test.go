package candlestick

import (
	"testing"
	"time"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(i int, o, h, l, c float64) bar.Bar {
	return bar.Bar{
		Timestamp: time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Symbol:    "SPY",
		Open:      o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

func TestDetectBullishEngulfing(t *testing.T) {
	candles := []bar.Bar{
		mkBar(0, 100, 100.2, 99.5, 99.6),
		mkBar(1, 99.5, 101, 99.4, 100.8),
	}

	e := New(types.TF1m)
	d, ok := e.detectEngulfing(candles)
	require.True(t, ok)
	assert.Equal(t, types.DirectionBullish, d.Direction)
	assert.Equal(t, types.CandlestickEngulfing, d.Family)
}

func TestDetectMarubozu(t *testing.T) {
	candles := []bar.Bar{mkBar(0, 100, 102, 99.98, 101.98)}

	e := New(types.TF1m)
	d, ok := e.detectMarubozu(candles)
	require.True(t, ok)
	assert.Equal(t, types.DirectionBullish, d.Direction)
}

func TestDetectAfterSweepFlag(t *testing.T) {
	candles := []bar.Bar{
		mkBar(0, 100, 102, 99.98, 101.98),
	}
	recent := []types.PatternDetection{
		types.NewICTDetection(types.ICTKindSweep, types.DirectionBullish, 0.5, types.TF1m, candles[0].Timestamp, nil),
	}

	e := New(types.TF1m)
	dets := e.Detect(candles, nil, recent)
	require.NotEmpty(t, dets)
	assert.True(t, dets[0].AfterSweep)
}
