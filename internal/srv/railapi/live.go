package railapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LiveSource fetches the board document over HTTPS with a bounded timeout.
// One GET per call; any non-2xx status, timeout or unreadable body is a
// FetchError.
type LiveSource struct {
	client  *http.Client
	url     string
	headers func(now time.Time) (map[string]string, error)
	now     func() time.Time
}

func newLiveSource(url string, headers func(now time.Time) (map[string]string, error)) *LiveSource {
	return &LiveSource{
		client:  &http.Client{Timeout: fetchTimeout},
		url:     url,
		headers: headers,
		now:     time.Now,
	}
}

func (s *LiveSource) Fetch(ctx context.Context) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		// A URL that cannot form a request is a configuration defect,
		// not a transient failure.
		return nil, err
	}

	headers, err := s.headers(s.now())
	if err != nil {
		return nil, err
	}
	for name, value := range headers {
		request.Header.Set(name, value)
	}

	logrus.Debugf("Calling rail API")

	response, err := s.client.Do(request)
	if err != nil {
		return nil, NewFetchError(FetchNetwork, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, NewFetchError(FetchProtocol,
			fmt.Errorf("HTTP request failed with status code %d", response.StatusCode))
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, NewFetchError(FetchNetwork, err)
	}

	logrus.Debugf("Rail API response: %.2f KB", float64(len(body))/1024)

	return body, nil
}
