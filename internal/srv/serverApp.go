package srv

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Pharkie/picow-railway-departure/apimodel"
	"github.com/Pharkie/picow-railway-departure/internal/srv/config"
	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
	"github.com/Pharkie/picow-railway-departure/internal/srv/event"
	"github.com/Pharkie/picow-railway-departure/internal/srv/railapi"
	"github.com/Pharkie/picow-railway-departure/internal/srv/raildata"
	"github.com/Pharkie/picow-railway-departure/internal/srv/sched"
	"github.com/Pharkie/picow-railway-departure/internal/version"
)

type ServerApp struct {
	*config.ServerConfig

	displayDevices []*device.Display
	surfaces       []*device.Surface

	engine    *raildata.Engine
	scheduler *sched.Scheduler
	apiDevice *device.Api

	// apiEvents is nil when the control API is disabled; a nil channel
	// never fires in the event loop select.
	apiEvents chan event.ApiEvent

	eventLoopAskDone chan bool
	eventLoopDone    chan bool
}

func NewServerApp(configDir string, debugMode bool, simulationMode bool) *ServerApp {

	logrus.Debugf("Creation of departure board server %s ...", version.AppVersion.String())

	app := &ServerApp{
		eventLoopAskDone: make(chan bool),
		eventLoopDone:    make(chan bool),
		ServerConfig:     config.NewServerConfig(configDir, debugMode, simulationMode),
	}

	source, err := railapi.NewSource(app.ServerConfig)
	if err != nil {
		logrus.Fatalf("Unable to create the rail data source: %v", err)
	}

	// One display, surface and platform filter per configured screen.
	platforms := make([]string, 0, len(app.ServerParam.SurfaceParams))
	bindings := make([]sched.SurfaceBinding, 0, len(app.ServerParam.SurfaceParams))
	for i, surfaceParam := range app.ServerParam.SurfaceParams {
		name := fmt.Sprintf("screen%d", i+1)
		display := device.NewDisplay(name, surfaceParam.I2CBus, device.DisplayWidth, device.DisplayHeight, app.SimulationMode)
		surface := device.NewSurface(name, display)
		app.displayDevices = append(app.displayDevices, display)
		app.surfaces = append(app.surfaces, surface)
		platforms = append(platforms, surfaceParam.Platform)
		bindings = append(bindings, sched.SurfaceBinding{Surface: surface, ID: raildata.SurfaceID(i)})
	}

	refreshParam := app.ServerParam.RefreshParam
	app.engine = raildata.NewEngine(source, raildata.EngineOptions{
		Platforms:     platforms,
		AlertOverride: app.ServerParam.AlertOverride,
		BaseInterval:  time.Duration(refreshParam.BaseIntervalSecs) * time.Second,
		RetryBase:     time.Duration(refreshParam.RetryBaseSecs) * time.Second,
		RetryCap:      time.Duration(refreshParam.RetryCapSecs) * time.Second,
	})

	app.scheduler = sched.New(app.engine, bindings, sched.Options{
		OfflineMode:      app.ServerParam.OfflineMode,
		FailureThreshold: refreshParam.FailureBannerThreshold,
		Timings:          sched.DefaultTimings(),
	})

	if app.ServerParam.ApiParam.Enabled {
		app.apiDevice = device.NewApi(app.ServerConfig, app)
		app.apiEvents = app.apiDevice.EventChannel()
	}

	logrus.Debugln("Server created")

	return app
}

func (s *ServerApp) Start() {
	logrus.Printf("Starting departure board server ...")

	logrus.Printf("Starting devices ...")

	// Start display devices
	for _, displayDevice := range s.displayDevices {
		if err := displayDevice.Start(); err != nil {
			logrus.Fatalf("Unable to start display %s: %v", displayDevice.Name(), err)
		}
	}

	// Display startup screen
	s.displaySplash()
	time.Sleep(2 * time.Second)
	s.clearSurfaces()

	// Start event loop
	go s.eventLoop()

	// First fetch before the screens start cycling, so there is usually
	// data on the very first pass. The event loop is already draining
	// engine events, so the update overlay covers this fetch too. A
	// failure here is not fatal, the engine retries on its own schedule.
	if err := s.engine.Refresh(); err != nil {
		logrus.Warnf("Initial board refresh failed: %v", err)
	}

	// Start rail data engine
	s.engine.Start()

	// Start display scheduler
	s.scheduler.Start()

	// Start api device
	if s.apiDevice != nil {
		s.apiDevice.Start()
	}
}

func (s *ServerApp) Stop(halt bool) {
	logrus.Printf("Stopping departure board server ...")

	// Stop api
	if s.apiDevice != nil {
		s.apiDevice.StopSendingEvent()
	}

	// Stop display scheduler
	s.scheduler.Stop()

	// Stop rail data engine
	s.engine.Stop()

	// Stop event loop
	logrus.Infof("Stop event loop")
	s.eventLoopAskDone <- true
	<-s.eventLoopDone

	// Display end screen
	s.displayGoodbye()

	// Stop display devices
	for _, displayDevice := range s.displayDevices {
		displayDevice.Stop()
	}

	logrus.Printf("Server stopped")

	if halt {
		logrus.Printf("System halt")
		haltCmd := exec.Command("sudo", "halt")
		err := haltCmd.Run()
		if err != nil {
			logrus.Panicf("Unable to halt the system: %v", err)
		}
	}
	os.Exit(0)
}

// Board builds the API view of the current snapshot.
func (s *ServerApp) Board() apimodel.BoardReply {
	reply := apimodel.BoardReply{
		Failures:  s.engine.Failures(),
		NextRetry: s.engine.NextRetryDelay().String(),
	}

	snapshot := s.engine.Snapshot()
	if snapshot == nil {
		return reply
	}

	reply.HasData = true
	reply.FetchedAt = snapshot.FetchedAt
	reply.Alert = snapshot.Alert

	for i, surfaceParam := range s.ServerParam.SurfaceParams {
		boardSurface := apimodel.BoardSurface{
			Name:     s.surfaces[i].Name(),
			Platform: surfaceParam.Platform,
		}
		for _, service := range snapshot.Departures[raildata.SurfaceID(i)] {
			boardService := apimodel.BoardService{
				Destination: service.Destination,
				Scheduled:   service.Scheduled,
				Estimated:   service.Estimated,
				Operator:    service.Operator,
			}
			for _, point := range service.CallingPoints {
				boardService.CallingPoints = append(boardService.CallingPoints,
					apimodel.BoardCallingPoint{
						LocationName: point.LocationName,
						Time:         point.Time,
					})
			}
			boardSurface.Services = append(boardSurface.Services, boardService)
		}
		reply.Surfaces = append(reply.Surfaces, boardSurface)
	}

	return reply
}

func (s *ServerApp) displaySplash() {
	for i, surface := range s.surfaces {
		screenLabel := fmt.Sprintf("Screen %d of %d", i+1, len(s.surfaces))
		err := surface.WithFrame(func(f *device.Frame) error {
			f.Fill(false)
			f.TextCentred("Pico departures", device.LineOneY)
			f.TextCentred(screenLabel, device.LineTwoY)
			f.TextCentred("Loading ...", device.LineThreeY)
			return nil
		})
		if err != nil {
			logrus.Warnf("Unable to draw splash screen on %s: %v", surface.Name(), err)
		}
	}
}

func (s *ServerApp) displayGoodbye() {
	for _, surface := range s.surfaces {
		err := surface.WithFrame(func(f *device.Frame) error {
			f.Fill(false)
			f.TextCentred("Goodbye", device.LineTwoY)
			return nil
		})
		if err != nil {
			logrus.Warnf("Unable to draw end screen on %s: %v", surface.Name(), err)
		}
	}
}

func (s *ServerApp) clearSurfaces() {
	for _, surface := range s.surfaces {
		err := surface.WithFrame(func(f *device.Frame) error {
			f.Fill(false)
			return nil
		})
		if err != nil {
			logrus.Warnf("Unable to clear %s: %v", surface.Name(), err)
		}
	}
}
