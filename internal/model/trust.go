package model

import "time"

// TrustBreakdown holds the component scores of a trust score.
type TrustBreakdown struct {
	CleanScan         int `json:"cleanScan"`
	PopularFormat     int `json:"popularFormat"`
	IntegrityVerified int `json:"integrityVerified"`
}

// Total sums the components.
func (b TrustBreakdown) Total() int {
	return b.CleanScan + b.PopularFormat + b.IntegrityVerified
}

// TrustScore is the cached trust rating of an item.
type TrustScore struct {
	ItemID      int64          `json:"itemId"`
	TotalScore  int            `json:"totalScore"`
	Breakdown   TrustBreakdown `json:"breakdown"`
	ContentHash string         `json:"contentHash"`
	ComputedAt  time.Time      `json:"computedAt"`
}
