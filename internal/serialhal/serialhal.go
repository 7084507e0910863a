// Package serialhal implements rdm.HAL over a real RS-485/USB-serial
// adapter, grounded on the teacher's serial_port.go raw-mode open/read/write
// via github.com/pkg/term, extended with golang.org/x/sys/unix primitives
// for the BREAK/MAB framing and bounded receive-with-timeout RDM turnaround
// timing requires that a packet-radio TNC never needed.
package serialhal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pkg/term"
	"golang.org/x/sys/unix"

	"github.com/bensuffolk/esp-dmx/rdm"
)

// ErrClosed is returned by HAL methods once Close has been called.
var ErrClosed = errors.New("serialhal: port closed")

// direction abstracts driving the RTS/direction line, so the UART's own RTS
// and gpiorts.Line can both satisfy it.
type direction interface {
	RTS() rdm.Direction
	SetRTS(rdm.Direction)
}

// uartRTS is the fallback direction controller for adapters whose RTS line
// is the UART's own signal: no separate GPIO chip, so direction is tracked
// purely in software alongside the fd's hardware flow-control state.
type uartRTS struct {
	dir rdm.Direction
}

func (u *uartRTS) RTS() rdm.Direction     { return u.dir }
func (u *uartRTS) SetRTS(d rdm.Direction) { u.dir = d }

// breakDurationMicros and markAfterBreakMicros are the DMX512 BREAK/MAB
// timing minimums (176us / 12us); the teacher's serial code never needed
// these since plain serial writes sufficed for AX.25/KISS framing.
const (
	breakDurationMicros     = 176
	markAfterBreakMicros    = 12
	pollTimeoutGranularityMs = 20
)

// HAL drives one physical serial device as an rdm.HAL. Every method treats
// its port argument as a formality: one HAL instance backs exactly one
// physical UART, matching how the original firmware binds one HAL per
// installed port (§3 Lifecycle).
type HAL struct {
	fd     *term.Term
	file   *os.File // not set by Open; Receive polls the descriptor from fdNum
	dir    direction
	closed bool
}

// Open opens device at baud and returns a HAL. If dir is non-nil (typically
// a *gpiorts.Line), direction switching is delegated to it; otherwise RTS
// is tracked in software only, appropriate for adapters that auto-direction
// or whose converter chip handles turnaround itself.
func Open(device string, baud int, dir direction) (*HAL, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialhal: open %s: %w", device, err)
	}
	if baud > 0 {
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("serialhal: set speed %d: %w", baud, err)
		}
	}

	if dir == nil {
		dir = &uartRTS{dir: rdm.Inbound}
	}

	return &HAL{fd: fd, dir: dir}, nil
}

// Close releases the underlying serial device.
func (h *HAL) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.fd.Close()
}

// RTS reports the port's current direction.
func (h *HAL) RTS(_ int) rdm.Direction { return h.dir.RTS() }

// SetRTS drives the port's direction line.
func (h *HAL) SetRTS(_ int, d rdm.Direction) { h.dir.SetRTS(d) }

func (h *HAL) fdNum() (uintptr, error) {
	f, ok := any(h.fd).(interface{ Fd() uintptr })
	if !ok {
		return 0, fmt.Errorf("serialhal: underlying term has no Fd()")
	}
	return f.Fd(), nil
}

// Send generates a BREAK + MAB per DMX512 framing, then writes buf. The
// original firmware bit-bangs BREAK in the UART peripheral itself; here we
// use the tty line-discipline's own break generation via TIOCSBRK/TIOCCBRK.
func (h *HAL) Send(ctx context.Context, _ int, buf []byte) error {
	if h.closed {
		return ErrClosed
	}

	fdNum, err := h.fdNum()
	if err == nil {
		_ = unix.IoctlSetInt(int(fdNum), unix.TIOCSBRK, 0)
		sleepMicros(ctx, breakDurationMicros)
		_ = unix.IoctlSetInt(int(fdNum), unix.TIOCCBRK, 0)
		sleepMicros(ctx, markAfterBreakMicros)
	}

	n, werr := h.fd.Write(buf)
	if werr != nil {
		return fmt.Errorf("serialhal: write: %w", werr)
	}
	if n != len(buf) {
		return fmt.Errorf("serialhal: short write %d/%d", n, len(buf))
	}
	return nil
}

// Receive blocks for inbound bytes up to ctx's deadline, polling the
// descriptor so the timeout is bounded even though github.com/pkg/term has
// no native read-timeout support.
func (h *HAL) Receive(ctx context.Context, _ int, buf []byte) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}

	fdNum, err := h.fdNum()
	if err != nil {
		return h.fd.Read(buf)
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

		fds := []unix.PollFd{{Fd: int32(fdNum), Events: unix.POLLIN}}
		n, perr := unix.Poll(fds, remaining)
		if perr != nil && !errors.Is(perr, unix.EINTR) {
			return total, fmt.Errorf("serialhal: poll: %w", perr)
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if n <= 0 {
			if total > 0 {
				// A poll interval with no further bytes ends the frame.
				break
			}
			continue
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		rn, rerr := h.fd.Read(buf[total:])
		if rerr != nil {
			return total, fmt.Errorf("serialhal: read: %w", rerr)
		}
		total += rn
		if rn == 0 {
			break
		}
	}
	return total, nil
}

// ReadSlots copies the most recently read raw bytes into dst; serialhal has
// no separate slot buffer, so discovery reuses the same Read path Receive
// already filled.
func (h *HAL) ReadSlots(_ int, dst []byte) int {
	n, err := h.fd.Read(dst)
	if err != nil {
		return 0
	}
	return n
}

// WaitSent sleeps a fixed 1ms, or until ctx is done. github.com/pkg/term
// exposes no tcdrain, and this does not measure how much data is still
// queued or take the baud rate into account.
func (h *HAL) WaitSent(ctx context.Context, _ int) error {
	sleepMicros(ctx, 1000)
	return ctx.Err()
}

func sleepMicros(ctx context.Context, us int) {
	t := time.NewTimer(time.Duration(us) * time.Microsecond)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
