package sched

import (
	"context"
	"fmt"
	"image"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
	"github.com/Pharkie/picow-railway-departure/internal/srv/raildata"
)

// DataProvider is the engine-side view the scheduler reads each cycle.
type DataProvider interface {
	Snapshot() *raildata.Snapshot
	Failures() int
	NextRetryDelay() time.Duration
}

// SurfaceBinding ties one surface to the snapshot slot it renders.
type SurfaceBinding struct {
	Surface *device.Surface
	ID      raildata.SurfaceID
}

type Options struct {
	OfflineMode      bool
	FailureThreshold int
	Timings          Timings
}

// Timings collects every delay the rendering routines use. Tests shrink
// them; production uses DefaultTimings.
type Timings struct {
	ClockTick           time.Duration
	DepartureDwell      time.Duration
	LineClearPause      time.Duration
	NoDeparturesDwell   time.Duration
	FailureBannerDwell  time.Duration
	ScrollFrameDelay    time.Duration
	AlertFlash          time.Duration
	AlertDwell          time.Duration
	CycleRest           time.Duration
	RoutineRestartDelay time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		ClockTick:           900 * time.Millisecond,
		DepartureDwell:      3 * time.Second,
		LineClearPause:      2 * time.Second,
		NoDeparturesDwell:   12 * time.Second,
		FailureBannerDwell:  5 * time.Second,
		ScrollFrameDelay:    100 * time.Millisecond,
		AlertFlash:          500 * time.Millisecond,
		AlertDwell:          3 * time.Second,
		CycleRest:           3 * time.Second,
		RoutineRestartDelay: 2 * time.Second,
	}
}

// Scheduler runs the rendering routines: per surface a clock routine and a
// departure-cycle routine, with the travel alert preempting the clock. A
// failing routine is logged and restarted; it never takes the surface's
// whole scheduling loop down with it.
type Scheduler struct {
	data     DataProvider
	surfaces []SurfaceBinding
	options  Options

	clocks map[raildata.SurfaceID]*clockRoutine
	cancel context.CancelFunc
	wg     sync.WaitGroup

	overlayLock  sync.Mutex
	overlaySaved map[raildata.SurfaceID]*image.RGBA
}

func New(data DataProvider, surfaces []SurfaceBinding, options Options) *Scheduler {
	scheduler := &Scheduler{
		data:         data,
		surfaces:     surfaces,
		options:      options,
		clocks:       make(map[raildata.SurfaceID]*clockRoutine, len(surfaces)),
		overlaySaved: make(map[raildata.SurfaceID]*image.RGBA, len(surfaces)),
	}
	for _, binding := range surfaces {
		scheduler.clocks[binding.ID] = newClockRoutine(
			binding.Surface, options.OfflineMode, options.Timings.ClockTick)
	}
	return scheduler
}

func (s *Scheduler) Start() {
	logrus.Infof("Start display scheduler (%d surfaces)", len(s.surfaces))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, binding := range s.surfaces {
		s.runRoutine(ctx, "clock", binding.Surface.Name(), s.clocks[binding.ID].run)
		s.runRoutine(ctx, "departures", binding.Surface.Name(), s.departureCycle(binding))
	}
}

func (s *Scheduler) Stop() {
	logrus.Infof("Stop display scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runRoutine keeps fn alive: a drawing or hardware error escapes to here,
// gets logged, and the routine restarts after a short delay.
func (s *Scheduler) runRoutine(ctx context.Context, name string, surfaceName string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			err := runSafe(ctx, fn)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logrus.Errorf("%s routine on %s failed, restart in %s: %v",
					name, surfaceName, s.options.Timings.RoutineRestartDelay, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.options.Timings.RoutineRestartDelay):
			}
		}
	}()
}

func runSafe(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return fn(ctx)
}

// BeginUpdateOverlay saves every surface and shows the "Updating trains"
// notice while a live refresh is in flight.
func (s *Scheduler) BeginUpdateOverlay() {
	s.overlayLock.Lock()
	defer s.overlayLock.Unlock()

	for _, binding := range s.surfaces {
		s.overlaySaved[binding.ID] = binding.Surface.SaveBuffer()
		err := binding.Surface.WithFrame(func(f *device.Frame) error {
			f.Fill(false)
			f.TextCentred("Updating trains", device.LineTwoY)
			return nil
		})
		if err != nil {
			logrus.Warnf("unable to draw update overlay on %s: %v", binding.Surface.Name(), err)
		}
	}
}

// EndUpdateOverlay puts the saved frames back.
func (s *Scheduler) EndUpdateOverlay() {
	s.overlayLock.Lock()
	defer s.overlayLock.Unlock()

	for _, binding := range s.surfaces {
		saved := s.overlaySaved[binding.ID]
		if saved == nil {
			continue
		}
		delete(s.overlaySaved, binding.ID)
		if err := binding.Surface.RestoreBuffer(saved); err != nil {
			logrus.Warnf("unable to restore frame on %s: %v", binding.Surface.Name(), err)
		}
	}
}

// sleep waits d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
