// Command irproxy-host runs the proxy firmware main loop on a PC. Frames
// come from a serial port and the IR envelope is simulated and logged.
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"irproxy/config"
	"irproxy/core"
	"irproxy/host/serial"
	"irproxy/host/sim"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device the wireless module is attached to")
	baud       = flag.Int("baud", 115200, "Baud rate")
	configPath = flag.String("config", "", "JSON timing configuration")
	statePath  = flag.String("state", "", "File keeping the retry counter across runs")
	tick       = flag.Duration("tick", 0, "Simulated carrier cycle, 0 runs flat out")
	debug      = flag.Bool("debug", false, "Enable firmware debug output")
)

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		glog.Fatalf("config: %v", err)
	}

	core.SetDebugWriter(func(s string) { glog.InfoDepth(1, s) })
	core.SetDebugEnabled(cfg.Debug || *debug)

	serialCfg := serial.DefaultConfig(*device)
	serialCfg.Baud = *baud
	port, err := serial.Open(serialCfg)
	if err != nil {
		glog.Fatal(err)
	}
	link := serial.NewLink(port, 256)
	defer link.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		link.Close()
		glog.Flush()
		os.Exit(0)
	}()

	out := sim.NewOutput(*tick)
	board := sim.NewBoard(out, *statePath)
	clock := core.NewMonotonicClock()

	glog.Infof("proxy on %s, %d baud", *device, *baud)
	for {
		// A fresh proxy per run stands in for the system reset
		proxy, err := core.NewProxy(link, clock, board, cfg.Proxy())
		if err != nil {
			glog.Fatal(err)
		}
		err = proxy.Run()
		if !errors.Is(err, core.ErrRestart) {
			glog.Fatalf("proxy stopped: %v", err)
		}
		stats := proxy.Stats()
		glog.Infof("restart after %d patterns, %d keepalives, %d rejected",
			stats.Patterns, stats.Keepalives, stats.Rejected)
		if err := link.Reset(); err != nil {
			glog.Warningf("link reset: %v", err)
		}
	}
}
