// Command dmxrdm-demo wires two rdm.Port values back-to-back over a
// github.com/creack/pty loopback pair — one acting as controller, the other
// running a minimal DISC_UNIQUE_BRANCH responder — so the whole transaction
// engine can be exercised with no DMX/RDM hardware at all.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/bensuffolk/esp-dmx/internal/ptyhal"
	"github.com/bensuffolk/esp-dmx/rdm"
)

func main() {
	var timeout = pflag.DurationP("timeout", "t", 500*time.Millisecond, "Discovery response timeout.")
	var help = pflag.Bool("help", false, "Display help text.")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - self-contained discovery demo over a pty loopback pair\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	controllerHAL, responderHAL, err := ptyhal.NewPair()
	if err != nil {
		logger.Fatal("open pty pair", "err", err)
	}
	defer controllerHAL.Close()
	defer responderHAL.Close()

	responderUID := rdm.UID{ManID: 0x7A11, DevID: 0x00000042}
	responder := rdm.NewPort(0, responderUID, responderHAL, logger)
	controller := rdm.NewPort(0, rdm.UID{ManID: 0x7A11, DevID: 0x00000001}, controllerHAL, logger)

	respCtx, respCancel := context.WithCancel(context.Background())
	defer respCancel()
	go runDiscoveryResponder(respCtx, responder, responderHAL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := &rdm.Header{DestUID: rdm.BroadcastAll, CC: rdm.DiscCommand, PID: rdm.PIDDiscUniqueBranch}
	_, ack, err := controller.Request(ctx, req, nil, nil)
	if err != nil {
		logger.Fatal("discovery request", "err", err)
	}

	switch ack.Type {
	case rdm.AckTypeAck:
		logger.Info("discovered responder", "uid", req.SrcUID)
	default:
		logger.Warn("discovery did not complete", "ack", ack.Type)
	}
}

// runDiscoveryResponder answers the first bytes that arrive on responder's
// HAL (in this demo, the controller's DISC_UNIQUE_BRANCH broadcast; the
// request is not inspected) by writing its own encoded UID onto the wire,
// the way a real RDM responder would reply to the binary-search discovery
// primitive — no standard header, just the preamble/dual-byte frame §4.C
// describes.
func runDiscoveryResponder(ctx context.Context, p *rdm.Port, hal *ptyhal.HAL, logger *log.Logger) {
	buf := make([]byte, 64)
	n, err := hal.Receive(ctx, p.Index(), buf)
	if err != nil || n == 0 {
		return
	}

	var encoded [24]byte
	elen := rdm.EncodeUID(encoded[:], p.OwnUID(), 0)
	if err := hal.Send(ctx, p.Index(), encoded[:elen]); err != nil {
		logger.Error("responder send", "err", err)
	}
}
