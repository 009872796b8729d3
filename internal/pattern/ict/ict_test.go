package ict

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

func TestDetectFVGBullish(t *testing.T) {
	candles := []bar.Bar{
		mkBar(0, 100, 101, 99, 100.5),
		mkBar(1, 100.5, 102, 100.4, 101.8),
		mkBar(2, 103, 104, 102.5, 103.5),
	}

	e := New(types.TF1m)
	dets := e.detectFVG(candles)
	require.Len(t, dets, 1)
	assert.Equal(t, types.DirectionBullish, dets[0].Direction)
	assert.Equal(t, types.ICTKindFVG, dets[0].ICTKind)
}

func TestFVGBoundsBullish(t *testing.T) {
	candles := []bar.Bar{
		mkBar(0, 100, 101, 99, 100.5),
		mkBar(1, 100.5, 102, 100.4, 101.8),
		mkBar(2, 103, 104, 102.5, 103.5),
	}

	top, bottom, mid, ok := FVGBounds(candles, types.DirectionBullish)
	require.True(t, ok)
	assert.Equal(t, 102.5, top)
	assert.Equal(t, 101.0, bottom)
	assert.InDelta(t, (top+bottom)/2, mid, 1e-9)
}

func TestDetectSweepBearish(t *testing.T) {
	levels := []types.LiquidityLevel{
		{Price: 100, Kind: types.LiquidityPDH},
	}
	last := mkBar(0, 99.8, 100.5, 99.5, 99.7)

	e := New(types.TF1m)
	det, ok := e.detectSweep(last, levels)
	require.True(t, ok)
	assert.Equal(t, types.DirectionBearish, det.Direction)
	assert.Equal(t, types.ICTKindSweep, det.ICTKind)
}

func TestDetectSweepSkipsAlreadySwept(t *testing.T) {
	levels := []types.LiquidityLevel{
		{Price: 100, Kind: types.LiquidityPDH, Swept: true},
	}
	last := mkBar(0, 99.8, 100.5, 99.5, 99.7)

	e := New(types.TF1m)
	_, ok := e.detectSweep(last, levels)
	assert.False(t, ok)
}
