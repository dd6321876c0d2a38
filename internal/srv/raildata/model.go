package raildata

import "time"

// SurfaceID indexes one configured display surface.
type SurfaceID int

type CallingPoint struct {
	LocationName string
	Time         string
}

// Service is one departure from the board. CallingPoints keep the order the
// API returned them.
type Service struct {
	Destination   string
	Scheduled     string
	Estimated     string
	Operator      string
	CallingPoints []CallingPoint
}

// Snapshot is an immutable point-in-time read of the board. The engine
// replaces the published snapshot as a whole; nothing mutates one after
// publication.
type Snapshot struct {
	Departures map[SurfaceID][]Service
	Alert      string
	FetchedAt  time.Time
}

// Wire types for the LDBWS board document.

type boardDocument struct {
	TrainServices []rawService  `json:"trainServices"`
	NrccMessages  []nrccMessage `json:"nrccMessages"`
}

type rawService struct {
	Destination             []rawLocation         `json:"destination"`
	Std                     string                `json:"std"`
	Etd                     string                `json:"etd"`
	Operator                string                `json:"operator"`
	Platform                string                `json:"platform"`
	SubsequentCallingPoints []rawCallingPointList `json:"subsequentCallingPoints"`
}

type rawLocation struct {
	LocationName string `json:"locationName"`
}

type rawCallingPointList struct {
	CallingPoint []rawCallingPoint `json:"callingPoint"`
}

type rawCallingPoint struct {
	LocationName string `json:"locationName"`
	St           string `json:"st"`
	Et           string `json:"et"`
}

type nrccMessage struct {
	Value string `json:"Value"`
}
