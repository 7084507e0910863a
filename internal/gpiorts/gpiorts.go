// Package gpiorts drives a DMX/RDM adapter's direction (RTS) line over a
// GPIO chip line instead of the UART's own RTS signal, for USB-RS485
// adapters that expose direction control separately. It completes, in pure
// Go via go-gpiocdev, the libgpiod migration the teacher repository's
// ptt.go/ptt_test.go had already started behind cgo.
package gpiorts

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/bensuffolk/esp-dmx/rdm"
)

// line is the subset of *gpiocdev.Line this package calls, matching the
// teacher's own gpiodOutputLine mock shape so tests can substitute a fake
// without a real GPIO chip.
type line interface {
	SetValue(v int) error
	Close() error
}

// Line drives one GPIO offset as a DMX direction line. Its RTS/SetRTS take
// no port argument, matching serialhal's direction interface rather than
// rdm.HAL, so it can be composed with a serialhal.HAL whose adapter doesn't
// wire RTS through the UART.
type Line struct {
	l       line
	invert  bool
	current rdm.Direction
}

// Open requests offset on chip as an output line, initially driven for
// Outbound. invert flips the electrical level convention for adapters
// whose buffer drives the opposite sense, the same role ptt_invert plays
// for the teacher's PTT GPIO output.
func Open(chip string, offset int, invert bool) (*Line, error) {
	initial := 1
	if invert {
		initial = 0
	}
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("gpiorts: request %s:%d: %w", chip, offset, err)
	}
	return &Line{l: l, invert: invert, current: rdm.Outbound}, nil
}

// newForTest builds a Line around an injected mock, bypassing Open's real
// GPIO chip request.
func newForTest(l line, invert bool) *Line {
	return &Line{l: l, invert: invert, current: rdm.Outbound}
}

// RTS reports the direction this Line was last set to.
func (g *Line) RTS() rdm.Direction { return g.current }

// SetRTS drives the line for dir, applying invert the same way the
// teacher's ptt_set_real flips the signal before writing it.
func (g *Line) SetRTS(dir rdm.Direction) {
	level := 0
	if dir == rdm.Outbound {
		level = 1
	}
	if g.invert {
		level = 1 - level
	}
	if g.l != nil {
		_ = g.l.SetValue(level)
	}
	g.current = dir
}

// Close releases the underlying GPIO line request.
func (g *Line) Close() error {
	if g.l == nil {
		return nil
	}
	return g.l.Close()
}
