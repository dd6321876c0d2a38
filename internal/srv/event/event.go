package event

// Engine
type EngineEvent struct {
	Data interface{}
}

type EngineEventRefreshStartedData struct{}

type EngineEventRefreshFinishedData struct {
	Err error
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventRefreshData struct{}

type ApiEventDisplaySwitchData struct{}
