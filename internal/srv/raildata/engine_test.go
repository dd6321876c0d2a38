package raildata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pharkie/picow-railway-departure/internal/srv/railapi"
)

// scriptedSource replays a fixed sequence of fetch outcomes.
type scriptedSource struct {
	lock    sync.Mutex
	results []scriptedResult
	calls   int
	delay   time.Duration
}

type scriptedResult struct {
	body []byte
	err  error
}

func (s *scriptedSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	result := s.results[s.calls%len(s.results)]
	s.calls++
	return result.body, result.err
}

func failure() scriptedResult {
	return scriptedResult{err: railapi.NewFetchError(railapi.FetchProtocol, assertableErr)}
}

var assertableErr = &statusError{}

type statusError struct{}

func (e *statusError) Error() string { return "HTTP request failed with status code 500" }

func success(body string) scriptedResult {
	return scriptedResult{body: []byte(body)}
}

const goodBody = `{
	"trainServices": [{
		"destination": [{"locationName": "London Paddington"}],
		"std": "10:14", "etd": "On time",
		"operator": "GWR", "platform": "1",
		"subsequentCallingPoints": []
	}]
}`

func testOptions() EngineOptions {
	return EngineOptions{
		Platforms:    []string{"1", "2"},
		BaseInterval: 60 * time.Second,
		RetryBase:    5 * time.Second,
		RetryCap:     180 * time.Second,
	}
}

func TestRetryDelay(t *testing.T) {
	base, max := 5*time.Second, 180*time.Second

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 80 * time.Second},
		{6, 160 * time.Second},
		{7, 180 * time.Second},
		{20, 180 * time.Second},
		{100, 180 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryDelay(base, max, tt.failures),
			"failures=%d", tt.failures)
	}
}

func TestEngineBackoffThenReset(t *testing.T) {
	// Three 500s then a 200: failures climb 1,2,3 with delays 5s,10s,20s,
	// then one success resets both.
	source := &scriptedSource{results: []scriptedResult{
		failure(), failure(), failure(), success(goodBody),
	}}
	engine := NewEngine(source, testOptions())

	wantDelays := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	for i, wantDelay := range wantDelays {
		err := engine.Refresh()
		require.Error(t, err)
		assert.Equal(t, i+1, engine.Failures())
		assert.Equal(t, wantDelay, engine.NextRetryDelay())
		// The snapshot stays unpublished until a fetch succeeds.
		assert.Nil(t, engine.Snapshot())
	}

	require.NoError(t, engine.Refresh())
	assert.Equal(t, 0, engine.Failures())
	assert.Equal(t, 60*time.Second, engine.NextRetryDelay())
	require.NotNil(t, engine.Snapshot())
	assert.False(t, engine.Snapshot().FetchedAt.IsZero())
}

func TestEngineKeepsStaleSnapshotOnFailure(t *testing.T) {
	source := &scriptedSource{results: []scriptedResult{
		success(goodBody), failure(),
	}}
	engine := NewEngine(source, testOptions())

	require.NoError(t, engine.Refresh())
	published := engine.Snapshot()
	require.NotNil(t, published)

	require.Error(t, engine.Refresh())

	// Stale-but-available beats empty: the exact same snapshot stays up.
	assert.Same(t, published, engine.Snapshot())
}

func TestEngineParseFailureIsRetryable(t *testing.T) {
	source := &scriptedSource{results: []scriptedResult{success("{not json")}}
	engine := NewEngine(source, testOptions())

	err := engine.Refresh()

	var fetchErr *railapi.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, railapi.FetchParse, fetchErr.Kind)
	assert.Equal(t, 1, engine.Failures())
}

func TestEngineAtomicPublish(t *testing.T) {
	source := &scriptedSource{results: []scriptedResult{success(goodBody), failure()}}
	engine := NewEngine(source, testOptions())

	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	readerWg.Add(1)
	go func() {
		defer readerWg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snapshot := engine.Snapshot()
			if snapshot == nil {
				continue
			}
			// A published snapshot is always complete: every configured
			// surface present, fetch time set.
			if len(snapshot.Departures) != 2 || snapshot.FetchedAt.IsZero() {
				t.Error("observed a partially published snapshot")
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		engine.Refresh()
	}
	close(stop)
	readerWg.Wait()
}

func TestEngineTriggerWhileRefreshing(t *testing.T) {
	source := &scriptedSource{
		results: []scriptedResult{success(goodBody)},
		delay:   100 * time.Millisecond,
	}
	engine := NewEngine(source, testOptions())

	var refreshWg sync.WaitGroup
	refreshWg.Add(1)
	go func() {
		defer refreshWg.Done()
		engine.Refresh()
	}()

	// Give the refresh time to mark itself outstanding.
	time.Sleep(20 * time.Millisecond)
	assert.ErrorIs(t, engine.TriggerRefresh(), ErrRefreshInProgress)

	refreshWg.Wait()
}

func TestEngineTriggerRefreshThroughLoop(t *testing.T) {
	source := &scriptedSource{results: []scriptedResult{success(goodBody)}}
	options := testOptions()
	options.BaseInterval = time.Hour // keep the periodic path out of the way
	engine := NewEngine(source, options)

	engine.Start()
	defer engine.Stop()

	require.NoError(t, engine.TriggerRefresh())
	assert.NotNil(t, engine.Snapshot())
}

func TestEngineAlertOverride(t *testing.T) {
	body := `{"trainServices": [], "nrccMessages": [{"Value": "Parsed alert"}]}`
	source := &scriptedSource{results: []scriptedResult{success(body)}}
	options := testOptions()
	options.AlertOverride = "Configured override"
	engine := NewEngine(source, options)

	require.NoError(t, engine.Refresh())
	assert.Equal(t, "Configured override", engine.Snapshot().Alert)
}
