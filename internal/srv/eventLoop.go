package srv

import (
	"github.com/sirupsen/logrus"

	"github.com/Pharkie/picow-railway-departure/internal/srv/event"
)

func (s *ServerApp) eventLoop() {
	for loop := true; loop; {
		select {
		case ev := <-s.engine.EventChannel():
			switch data := ev.Data.(type) {
			case event.EngineEventRefreshStartedData:
				logrus.Debugf("Receive refresh started event")
				// In offline mode the data never changes, so the overlay
				// would only flicker.
				if !s.ServerParam.OfflineMode {
					s.scheduler.BeginUpdateOverlay()
				}
			case event.EngineEventRefreshFinishedData:
				if data.Err != nil {
					logrus.Warnf("Board refresh failed: %v", data.Err)
				} else {
					logrus.Debugf("Receive refresh finished event")
				}
				if !s.ServerParam.OfflineMode {
					s.scheduler.EndUpdateOverlay()
				}
			}
		case ev := <-s.apiEvents:
			switch ev.Data.(type) {
			case event.ApiEventRefreshData:
				logrus.Infof("Receive api refresh event")
				// Answered on the side: the loop must keep draining the
				// engine's started/finished events while the fetch runs,
				// or the update overlay goes up only after the fact.
				go func(result chan error) {
					result <- s.engine.TriggerRefresh()
				}(ev.Result)
			case event.ApiEventDisplaySwitchData:
				logrus.Infof("Receive api display switch event")
				for _, displayDevice := range s.displayDevices {
					displayDevice.Switch()
				}
				ev.Result <- nil
			}
		case <-s.eventLoopAskDone:
			loop = false
		}
	}
	s.eventLoopDone <- true
}
