package entity

// Market codes supported by the pipeline.
const (
	MarketKOSPI  = "KOSPI"
	MarketKOSDAQ = "KOSDAQ"
)

// Direction labels for predicted and realized price moves.
const (
	DirectionUp      = "up"
	DirectionDown    = "down"
	DirectionNeutral = "neutral"
)

// IsValidMarket reports whether the given market code is supported.
func IsValidMarket(market string) bool {
	switch market {
	case MarketKOSPI, MarketKOSDAQ:
		return true
	}
	return false
}
