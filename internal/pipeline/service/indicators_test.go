package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNDayReturn(t *testing.T) {
	closes := []float64{100, 110, 121}

	assert.InDelta(t, 10.0, nDayReturn(closes, 1), 1e-9)
	assert.InDelta(t, 21.0, nDayReturn(closes, 2), 1e-9)
	assert.Equal(t, 0.0, nDayReturn(closes, 3), "short series yields 0")
}

func TestSMAAndMARatio(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 4.0, sma(closes, 3), 1e-9)
	assert.InDelta(t, 3.0, sma(closes, 5), 1e-9)
	assert.Equal(t, 0.0, sma(closes, 6))

	assert.InDelta(t, 5.0/3.0, maRatio(closes, 5), 1e-9)
}

func TestReturnVolatility(t *testing.T) {
	flat := []float64{100, 100, 100, 100}
	assert.Equal(t, 0.0, returnVolatility(flat, 3))

	closes := []float64{100, 110, 99}
	// Returns are +10% and -10%; population std-dev is 10.
	assert.InDelta(t, 10.0, returnVolatility(closes, 2), 1e-9)

	assert.Equal(t, 0.0, returnVolatility(closes, 5), "short series yields 0")
}

func TestRSI(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	assert.Equal(t, 100.0, rsi(up, 14))

	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	assert.Equal(t, 50.0, rsi(flat, 14))

	assert.Equal(t, 0.0, rsi([]float64{1, 2}, 14), "short series yields 0")
}

func TestBollingerPosition(t *testing.T) {
	flat := []float64{10, 10, 10, 10, 10}
	assert.Equal(t, 0.5, bollingerPosition(flat, 5), "zero-width band centers")

	assert.Equal(t, 0.5, bollingerPosition([]float64{1, 2}, 5), "short series centers")

	closes := []float64{10, 10, 10, 10, 14}
	pos := bollingerPosition(closes, 5)
	assert.Greater(t, pos, 0.5)
	assert.LessOrEqual(t, pos, 1.0)
}
