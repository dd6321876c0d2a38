package raildata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pharkie/picow-railway-departure/internal/srv/event"
	"github.com/Pharkie/picow-railway-departure/internal/srv/railapi"
)

// ErrRefreshInProgress is returned by TriggerRefresh while a fetch is
// already outstanding. The request is ignored, not queued.
var ErrRefreshInProgress = errors.New("a refresh is already in progress")

const fetchTimeout = 15 * time.Second

type EngineOptions struct {
	// Platforms lists the platform filter per surface, in surface order.
	Platforms     []string
	AlertOverride string
	BaseInterval  time.Duration
	RetryBase     time.Duration
	RetryCap      time.Duration
}

// Engine owns the current snapshot and the refresh cycle. It is either Idle
// (serving the last good snapshot) or Refreshing (one fetch outstanding);
// never more than one fetch runs at a time.
type Engine struct {
	source  railapi.Source
	options EngineOptions

	lock       sync.RWMutex
	snapshot   *Snapshot
	refreshing bool
	failures   int
	nextDelay  time.Duration

	eventChannel chan event.EngineEvent
	trigger      chan chan error
	askDone      chan bool
	done         chan bool
}

func NewEngine(source railapi.Source, options EngineOptions) *Engine {
	return &Engine{
		source:       source,
		options:      options,
		nextDelay:    options.BaseInterval,
		eventChannel: make(chan event.EngineEvent, 8),
		trigger:      make(chan chan error),
		askDone:      make(chan bool),
		done:         make(chan bool),
	}
}

func (e *Engine) Start() {
	logrus.Infof("Start rail data engine")

	go func() {
		for loop := true; loop; {
			timer := time.NewTimer(e.NextRetryDelay())
			select {
			case <-timer.C:
				e.Refresh()
			case result := <-e.trigger:
				timer.Stop()
				result <- e.Refresh()
			case <-e.askDone:
				timer.Stop()
				loop = false
			}
		}
		e.done <- true
	}()
}

func (e *Engine) Stop() {
	logrus.Infof("Stop rail data engine")
	e.askDone <- true
	<-e.done
}

func (e *Engine) EventChannel() chan event.EngineEvent {
	return e.eventChannel
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful refresh. The returned snapshot is immutable; callers keep a
// consistent view however long they hold it.
func (e *Engine) Snapshot() *Snapshot {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.snapshot
}

func (e *Engine) Failures() int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.failures
}

func (e *Engine) NextRetryDelay() time.Duration {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.nextDelay
}

// TriggerRefresh asks the refresh loop to fetch now and waits for the
// outcome. While a refresh is outstanding it returns ErrRefreshInProgress
// without queueing another one.
func (e *Engine) TriggerRefresh() error {
	e.lock.RLock()
	refreshing := e.refreshing
	e.lock.RUnlock()
	if refreshing {
		return ErrRefreshInProgress
	}

	result := make(chan error)
	select {
	case e.trigger <- result:
		return <-result
	default:
		return ErrRefreshInProgress
	}
}

// Refresh performs one fetch-parse-publish cycle synchronously. On success
// the snapshot is swapped whole and the retry state resets; on failure the
// previous snapshot stays published and the next delay backs off
// exponentially.
func (e *Engine) Refresh() error {
	e.lock.Lock()
	e.refreshing = true
	e.lock.Unlock()

	e.sendEvent(event.EngineEvent{Data: event.EngineEventRefreshStartedData{}})

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	raw, err := e.source.Fetch(ctx)

	var snapshot *Snapshot
	if err == nil {
		snapshot, err = ParseBoard(raw, e.options.Platforms, e.options.AlertOverride, time.Now())
	}

	e.lock.Lock()
	if err != nil {
		e.failures++
		e.nextDelay = RetryDelay(e.options.RetryBase, e.options.RetryCap, e.failures)
	} else {
		e.failures = 0
		e.nextDelay = e.options.BaseInterval
		e.snapshot = snapshot
	}
	e.refreshing = false
	failures := e.failures
	nextDelay := e.nextDelay
	e.lock.Unlock()

	e.sendEvent(event.EngineEvent{Data: event.EngineEventRefreshFinishedData{Err: err}})

	if err != nil {
		logrus.Errorf("Rail API request fail #%d: %v. Next retry in %s.", failures, err, nextDelay)
	} else {
		logrus.Infof("Rail API request success. Next call in %s.", nextDelay)
	}

	return err
}

// RetryDelay is the delay before attempt failures+1: base doubled per
// consecutive failure, capped at max.
func RetryDelay(base, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		return base
	}
	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func (e *Engine) sendEvent(ev event.EngineEvent) {
	select {
	case e.eventChannel <- ev:
	default:
		logrus.Debugf("Engine event dropped, nobody listening")
	}
}
