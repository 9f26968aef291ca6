package model

// StatsResponse is the API response for marketplace-wide statistics.
type StatsResponse struct {
	TotalPurchases int `json:"totalPurchases"`
	TotalBuyers    int `json:"totalBuyers"`
	TotalVotes     int `json:"totalVotes"`
	VotedItems     int `json:"votedItems"`
	ScoredItems    int `json:"scoredItems"`
	Purchases24h   int `json:"purchases24h"`
}
