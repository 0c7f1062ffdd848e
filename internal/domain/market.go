package domain

// Outcome is one possible resolution of a market. Price is the implied
// probability in [0,1]; prices of a market's outcomes need not sum to 1.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market represents a single prediction-market instrument as supplied by the
// snapshot. Nothing is validated on ingest, so any field may be empty.
type Market struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Outcomes       []Outcome `json:"outcomes"` // normally exactly two
	Volume24h      float64   `json:"volume24h"`
	VolumeTotal    float64   `json:"volumeTotal"`
	Liquidity      float64   `json:"liquidity"`
	FavoredOutcome string    `json:"favoredOutcome"`
	EndTime        string    `json:"endTime"`
}
