// Package events re-exports the platform event bus so pipeline modules can
// import bus and event definitions from one place.
package events

import (
	platformevents "lead_pipeline_backend/platform/events"
	"lead_pipeline_backend/platform/logger"
)

// InMemoryBus is the platform in-process bus.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
