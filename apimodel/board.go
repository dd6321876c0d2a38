package apimodel

import "time"

// BoardReply is the JSON view of the current snapshot served by the control
// API.
type BoardReply struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Alert     string         `json:"alert"`
	Failures  int            `json:"failures"`
	NextRetry string         `json:"next_retry"`
	Surfaces  []BoardSurface `json:"surfaces"`
	HasData   bool           `json:"has_data"`
}

type BoardSurface struct {
	Name     string         `json:"name"`
	Platform string         `json:"platform"`
	Services []BoardService `json:"services"`
}

type BoardService struct {
	Destination   string              `json:"destination"`
	Scheduled     string              `json:"scheduled"`
	Estimated     string              `json:"estimated"`
	Operator      string              `json:"operator"`
	CallingPoints []BoardCallingPoint `json:"calling_points"`
}

type BoardCallingPoint struct {
	LocationName string `json:"location_name"`
	Time         string `json:"time"`
}
