package raildata

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/Pharkie/picow-railway-departure/internal/srv/railapi"
)

// At most this many services are kept per platform, in API order.
const maxServicesPerPlatform = 2

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// ParseBoard turns a raw board document into a snapshot: per-platform
// departures for each configured surface plus the travel alert. A non-empty
// override always wins over the parsed alert.
func ParseBoard(raw []byte, platforms []string, alertOverride string, fetchedAt time.Time) (*Snapshot, error) {
	var document boardDocument
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, railapi.NewFetchError(railapi.FetchParse, err)
	}

	snapshot := &Snapshot{
		Departures: make(map[SurfaceID][]Service, len(platforms)),
		FetchedAt:  fetchedAt,
	}

	for i, platform := range platforms {
		snapshot.Departures[SurfaceID(i)] = parseDepartures(document.TrainServices, platform)
	}

	if alertOverride != "" {
		snapshot.Alert = alertOverride
	} else {
		snapshot.Alert = parseAlert(document.NrccMessages)
	}

	return snapshot, nil
}

func parseDepartures(services []rawService, platform string) []Service {
	departures := []Service{}
	for _, service := range services {
		if service.Platform != platform {
			continue
		}
		departures = append(departures, parseService(service))
		if len(departures) == maxServicesPerPlatform {
			break
		}
	}
	return departures
}

func parseService(service rawService) Service {
	parsed := Service{
		Scheduled: service.Std,
		Estimated: service.Etd,
		Operator:  service.Operator,
	}
	if len(service.Destination) > 0 {
		parsed.Destination = service.Destination[0].LocationName
	}

	// Calling points keep API order. "On time" has no time of its own, so
	// the scheduled time stands in for it.
	for _, list := range service.SubsequentCallingPoints {
		for _, callingPoint := range list.CallingPoint {
			pointTime := callingPoint.Et
			if pointTime == "On time" {
				pointTime = callingPoint.St
			}
			parsed.CallingPoints = append(parsed.CallingPoints, CallingPoint{
				LocationName: callingPoint.LocationName,
				Time:         pointTime,
			})
		}
	}

	return parsed
}

// parseAlert extracts the first NRCC message, strips HTML markup and
// collapses whitespace. An empty string means no alert.
func parseAlert(messages []nrccMessage) string {
	if len(messages) == 0 {
		return ""
	}
	stripped := htmlTagPattern.ReplaceAllString(messages[0].Value, "")
	return strings.Join(strings.Fields(stripped), " ")
}
