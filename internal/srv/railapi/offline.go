package railapi

import (
	"context"
	_ "embed"
	"os"

	"github.com/sirupsen/logrus"
)

//go:embed sample_data.json
var sampleData []byte

// OfflineSource serves a local board document instead of calling the live
// API. With no filename configured it falls back to the embedded sample.
type OfflineSource struct {
	filename string
}

func NewOfflineSource(filename string) *OfflineSource {
	return &OfflineSource{filename: filename}
}

func (s *OfflineSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.filename == "" {
		logrus.Debugf("Serving embedded sample board data")
		return sampleData, nil
	}

	raw, err := os.ReadFile(s.filename)
	if err != nil {
		return nil, NewFetchError(FetchNetwork, err)
	}
	return raw, nil
}
