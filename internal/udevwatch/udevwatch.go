// Package udevwatch detects a configured USB-serial DMX/RDM adapter being
// attached or detached and drives a Port's install/uninstall lifecycle
// accordingly. The embedded C core installs ports once at firmware startup
// and has no analogue of this; it's a natural addition for a desktop/SBC
// host where the adapter is a USB device that can come and go, grounded in
// the teacher's own device-opening code (serial_port.go) generalized from
// "open a fixed path" to "track a device that may not be there yet."
package udevwatch

import (
	"context"
	"fmt"

	"github.com/jochenvg/go-udev"
)

// Event is one udev device lifecycle notification.
type Event struct {
	Action  string // "add" or "remove"
	DevNode string // e.g. "/dev/ttyUSB0"
}

// Callbacks receives attach/detach notifications for a single target device
// node. Either field may be left nil.
type Callbacks struct {
	OnAttach func(devNode string)
	OnDetach func(devNode string)
}

// Dispatch invokes the callback in cb matching ev, filtered to events for
// target. It's a free function so the lifecycle policy can be unit tested
// without a live udev netlink socket.
func Dispatch(ev Event, target string, cb Callbacks) {
	if ev.DevNode != target {
		return
	}
	switch ev.Action {
	case "add":
		if cb.OnAttach != nil {
			cb.OnAttach(ev.DevNode)
		}
	case "remove":
		if cb.OnDetach != nil {
			cb.OnDetach(ev.DevNode)
		}
	}
}

// Watcher drives Dispatch from a live udev netlink monitor on the "tty"
// subsystem.
type Watcher struct {
	u udev.Udev
}

// New builds a Watcher.
func New() *Watcher {
	return &Watcher{}
}

// Watch blocks, dispatching tty subsystem add/remove events for target to
// cb, until ctx is done or the monitor channel closes.
func (w *Watcher) Watch(ctx context.Context, target string, cb Callbacks) error {
	mon := w.u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("tty"); err != nil {
		return fmt.Errorf("udevwatch: add subsystem filter: %w", err)
	}

	ch, err := mon.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("udevwatch: start monitor: %w", err)
	}

	for d := range ch {
		Dispatch(Event{Action: d.Action(), DevNode: d.Devnode()}, target, cb)
	}
	return ctx.Err()
}
