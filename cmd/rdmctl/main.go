// Command rdmctl is a small CLI front end around the rdm transport core: it
// loads a port-configuration file, installs one configured port over a real
// serial/GPIO backend, and issues a single RDM transaction (currently
// discovery) against it. Flag handling follows the teacher's appserver.go
// pattern: github.com/spf13/pflag with a custom Usage and a required
// positional argument.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/bensuffolk/esp-dmx/internal/gpiorts"
	"github.com/bensuffolk/esp-dmx/internal/rdmconfig"
	"github.com/bensuffolk/esp-dmx/internal/serialhal"
	"github.com/bensuffolk/esp-dmx/internal/sessionlog"
	"github.com/bensuffolk/esp-dmx/rdm"
)

func main() {
	var configPath = pflag.StringP("config", "c", "ports.yaml", "Port configuration file.")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory for per-run transaction logs. Empty disables logging.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - discover RDM responders on a configured DMX/RDM port\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS] PORT_NAME\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "PORT_NAME selects a port entry from the configuration file.\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if len(pflag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "exactly one argument required (PORT_NAME)\n")
		pflag.Usage()
		os.Exit(1)
	}
	portName := pflag.Arg(0)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfg, err := rdmconfig.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}

	var pc *rdmconfig.Port
	for i := range cfg.Ports {
		if cfg.Ports[i].Name == portName {
			pc = &cfg.Ports[i]
			break
		}
	}
	if pc == nil {
		logger.Fatal("no such configured port", "name", portName)
	}

	var dirCtl *gpiorts.Line
	if pc.GPIODirection != nil {
		dirCtl, err = gpiorts.Open(pc.GPIODirection.Chip, pc.GPIODirection.Offset, pc.GPIODirection.Invert)
		if err != nil {
			logger.Fatal("open gpio direction line", "err", err)
		}
		defer dirCtl.Close()
	}

	hal, err := serialhal.Open(pc.Device, pc.Baud, dirDirection(dirCtl))
	if err != nil {
		logger.Fatal("open serial port", "err", err)
	}
	defer hal.Close()

	var logWriter *sessionlog.Writer
	if *logDir != "" {
		logWriter, err = sessionlog.New(*logDir, sessionlog.DefaultPattern)
		if err != nil {
			logger.Fatal("open session log", "err", err)
		}
		defer logWriter.Close()
	}

	ownUID := rdm.UID{ManID: pc.ManufacturerID, DevID: pc.DeviceID}
	port := rdm.NewPort(0, ownUID, hal, logger)

	ctx, cancel := context.WithTimeout(context.Background(), pc.DiscoveryTimeout())
	defer cancel()

	req := &rdm.Header{DestUID: rdm.BroadcastAll, CC: rdm.DiscCommand, PID: rdm.PIDDiscUniqueBranch}
	_, ack, err := port.Request(ctx, req, nil, nil)
	if err != nil {
		logger.Fatal("discovery request", "err", err)
	}

	record := fmt.Sprintf("discover port=%s ack=%s", portName, ack.Type)
	switch ack.Type {
	case rdm.AckTypeAck:
		logger.Info("discovered responder", "uid", req.SrcUID, "port", portName)
		record += fmt.Sprintf(" uid=%04x:%08x", req.SrcUID.ManID, req.SrcUID.DevID)
	case rdm.AckTypeInvalid:
		logger.Warn("discovery inconclusive (collision or no responder)", "port", portName, "err", ack.Err)
	default:
		logger.Info("discovery result", "ack", ack.Type, "port", portName)
	}

	if logWriter != nil {
		if err := logWriter.WriteRecord(record); err != nil {
			logger.Error("write session log", "err", err)
		}
	}
}

// dirDirection adapts a possibly-nil *gpiorts.Line to serialhal's direction
// interface: a nil *gpiorts.Line must become a true nil interface value, not
// a non-nil interface wrapping a nil pointer.
func dirDirection(l *gpiorts.Line) interface {
	RTS() rdm.Direction
	SetRTS(rdm.Direction)
} {
	if l == nil {
		return nil
	}
	return l
}
