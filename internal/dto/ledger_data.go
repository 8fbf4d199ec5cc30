package dto

import "time"

// LedgerEntry is one locally recorded media asset as served by the progress server.
type LedgerEntry struct {
	MID        string    `json:"mid"`
	Name       string    `json:"name"`
	ModelType  string    `json:"modelType"`
	Status     string    `json:"status"`
	Terminal   bool      `json:"terminal"`
	FilePath   string    `json:"filePath,omitempty"`
	HeatmapURL string    `json:"heatmapURL,omitempty"`
	ResultURL  string    `json:"resultURL,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LedgerData is a paginated response payload for the media ledger.
type LedgerData struct {
	Media       []LedgerEntry `json:"media"`
	Length      int           `json:"length"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
