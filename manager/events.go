package manager

import (
	"context"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
)

// EventType identifies a package lifecycle notification.
type EventType int

// Shared repository events fire around the physical install or removal of a
// package; reference events fire around adding it to or removing it from
// one project.
const (
	PackageInstalling EventType = iota
	PackageInstalled
	PackageUninstalling
	PackageUninstalled
	ReferenceAdding
	ReferenceAdded
	ReferenceRemoving
	ReferenceRemoved
)

var eventNames = [...]string{
	PackageInstalling:   "PackageInstalling",
	PackageInstalled:    "PackageInstalled",
	PackageUninstalling: "PackageUninstalling",
	PackageUninstalled:  "PackageUninstalled",
	ReferenceAdding:     "ReferenceAdding",
	ReferenceAdded:      "ReferenceAdded",
	ReferenceRemoving:   "ReferenceRemoving",
	ReferenceRemoved:    "ReferenceRemoved",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "Unknown"
}

// PackageEvent describes one notification.
type PackageEvent struct {
	Type    EventType
	Package *core.Package

	// InstallPath is the package folder in the shared repository.
	InstallPath string

	// Project is set for reference events only.
	Project ProjectSystem
}

// EventHandler consumes a notification. A returned error is logged and
// does not stop the operation that raised the event.
type EventHandler func(ctx context.Context, e PackageEvent) error

// Events is a registry of handlers. The zero value is ready to use.
type Events struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// On registers h for t.
func (ev *Events) On(t EventType, h EventHandler) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if ev.handlers == nil {
		ev.handlers = make(map[EventType][]EventHandler)
	}
	ev.handlers[t] = append(ev.handlers[t], h)
}

// raise calls every handler for e.Type in registration order.
func (ev *Events) raise(ctx context.Context, logger observability.Logger, e PackageEvent) {
	if ev == nil {
		return
	}
	ev.mu.RLock()
	handlers := append([]EventHandler(nil), ev.handlers[e.Type]...)
	ev.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			logger.Warn("{Event} handler failed for {PackageID}@{Version}: {Error}",
				e.Type.String(), e.Package.ID(), e.Package.Version().String(), err)
		}
	}
}
