package service

import "math"

// Technical indicator helpers over chronologically ordered close series
// (oldest first, last element is the as-of day). Each returns 0 when the
// series is too short for its window.

// nDayReturn is the percentage change over the trailing n sessions.
func nDayReturn(closes []float64, n int) float64 {
	if len(closes) < n+1 {
		return 0
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev * 100
}

// sma is the simple moving average of the trailing n closes.
func sma(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return 0
	}
	var sum float64
	for _, c := range closes[len(closes)-n:] {
		sum += c
	}
	return sum / float64(n)
}

// maRatio is close divided by its n-session moving average.
func maRatio(closes []float64, n int) float64 {
	avg := sma(closes, n)
	if avg == 0 {
		return 0
	}
	return closes[len(closes)-1] / avg
}

// returnVolatility is the population standard deviation of the trailing n
// daily returns (requires n+1 closes).
func returnVolatility(closes []float64, n int) float64 {
	if len(closes) < n+1 {
		return 0
	}
	window := closes[len(closes)-1-n:]
	returns := make([]float64, 0, n)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1]*100)
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	return math.Sqrt(sq / float64(len(returns)))
}

// rsi is the n-period relative strength index over average gains/losses.
func rsi(closes []float64, n int) float64 {
	if len(closes) < n+1 {
		return 0
	}
	window := closes[len(closes)-1-n:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		diff := window[i] - window[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	if gains+losses == 0 {
		return 50
	}
	avgGain := gains / float64(n)
	avgLoss := losses / float64(n)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// bollingerPosition is %B over an n-period, 2-sigma band: 0 at the lower
// band, 1 at the upper, 0.5 when the band has zero width.
func bollingerPosition(closes []float64, n int) float64 {
	if len(closes) < n {
		return 0.5
	}
	window := closes[len(closes)-n:]
	mid := sma(closes, n)
	var sq float64
	for _, c := range window {
		sq += (c - mid) * (c - mid)
	}
	sd := math.Sqrt(sq / float64(n))
	if sd == 0 {
		return 0.5
	}
	lower := mid - 2*sd
	upper := mid + 2*sd
	return (closes[len(closes)-1] - lower) / (upper - lower)
}
