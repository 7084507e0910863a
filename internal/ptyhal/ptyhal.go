// Package ptyhal implements rdm.HAL over a github.com/creack/pty
// pseudo-terminal pair, giving two rdm.Port values a private virtual wire
// with no real hardware involved. It is grounded on the teacher's own use
// of pty.Open() for its virtual KISS TNC (src/kiss.go's kisspt_open_pt),
// generalized from "one pty feeding a KISS decoder" to "a loopback bus two
// ports dial into."
package ptyhal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/bensuffolk/esp-dmx/rdm"
)

// ErrClosed is returned once Close has been called on a HAL end.
var ErrClosed = errors.New("ptyhal: end closed")

const pollTimeoutGranularityMs = 20

// HAL is one end of a pty-backed virtual bus. Bytes written to one end are
// readable from the other, the same way both sides of a DMX/RDM wire see
// every byte either transmitter puts on it.
type HAL struct {
	f      *os.File
	dir    rdm.Direction
	closed bool
}

// NewPair opens a pty and returns its two ends as independent HALs: a
// (master) is conventionally given to the controller Port, b (slave) to the
// responder Port, though the pty itself has no notion of which side that is.
func NewPair() (a *HAL, b *HAL, err error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("ptyhal: open: %w", err)
	}
	// Put the pair in raw mode so binary frames pass through unchanged
	// (no line buffering, echo, signal characters or CR/NL translation).
	if t, terr := unix.IoctlGetTermios(int(pts.Fd()), unix.TCGETS); terr == nil {
		t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
		t.Oflag &^= unix.OPOST
		t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
		t.Cflag &^= unix.CSIZE | unix.PARENB
		t.Cflag |= unix.CS8
		t.Cc[unix.VMIN] = 1
		t.Cc[unix.VTIME] = 0
		_ = unix.IoctlSetTermios(int(pts.Fd()), unix.TCSETS, t)
	}
	return &HAL{f: ptmx, dir: rdm.Inbound}, &HAL{f: pts, dir: rdm.Inbound}, nil
}

// Close releases this end's file descriptor.
func (h *HAL) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.f.Close()
}

// RTS reports this end's direction, tracked purely in software: a pty has
// no physical direction line to switch.
func (h *HAL) RTS(_ int) rdm.Direction { return h.dir }

// SetRTS records this end's direction.
func (h *HAL) SetRTS(_ int, d rdm.Direction) { h.dir = d }

// Send writes buf to the pty end. There's no BREAK/MAB to generate over a
// pty; the bytes alone are sufficient to exercise the frame codec and
// transaction engine end to end.
func (h *HAL) Send(ctx context.Context, _ int, buf []byte) error {
	if h.closed {
		return ErrClosed
	}
	n, err := h.f.Write(buf)
	if err != nil {
		return fmt.Errorf("ptyhal: write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("ptyhal: short write %d/%d", n, len(buf))
	}
	return ctx.Err()
}

// Receive blocks for inbound bytes up to ctx's deadline.
func (h *HAL) Receive(ctx context.Context, _ int, buf []byte) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}

	total := 0
	for total < len(buf) {
		remaining := pollTimeoutGranularityMs
		if deadline, ok := ctx.Deadline(); ok {
			ms := int(time.Until(deadline) / time.Millisecond)
			if ms <= 0 {
				return total, context.DeadlineExceeded
			}
			if ms < remaining {
				remaining = ms
			}
		}

		fds := []unix.PollFd{{Fd: int32(h.f.Fd()), Events: unix.POLLIN}}
		n, perr := unix.Poll(fds, remaining)
		if perr != nil && !errors.Is(perr, unix.EINTR) {
			return total, fmt.Errorf("ptyhal: poll: %w", perr)
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if n <= 0 || fds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		rn, rerr := h.f.Read(buf[total:])
		if rerr != nil {
			return total, fmt.Errorf("ptyhal: read: %w", rerr)
		}
		total += rn
		if rn == 0 {
			break
		}
		return total, nil
	}
	return total, nil
}

// ReadSlots copies raw inbound bytes straight off the pty, for discovery
// frames which carry no standard header to validate.
func (h *HAL) ReadSlots(_ int, dst []byte) int {
	n, err := h.f.Read(dst)
	if err != nil {
		return 0
	}
	return n
}

// WaitSent is a no-op wait for a pty, which has no separate hardware FIFO
// to drain.
func (h *HAL) WaitSent(ctx context.Context, _ int) error {
	return ctx.Err()
}
