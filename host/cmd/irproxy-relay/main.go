// Command irproxy-relay runs on the wireless module side. It subscribes to
// the IR topic on an MQTT broker and forwards every frame to the proxy over
// the serial link, with keepalives in between.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"irproxy/config"
	"irproxy/host/serial"
	"irproxy/relay"
)

var (
	device     = flag.String("device", "/dev/ttyS0", "Serial device wired to the proxy")
	baud       = flag.Int("baud", 115200, "Baud rate")
	configPath = flag.String("config", "", "JSON configuration")
	broker     = flag.String("broker", "", "Broker URL, overrides the configuration")
	topic      = flag.String("topic", "", "Topic carrying IR frames, overrides the configuration")
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
	if *broker != "" {
		cfg.Relay.Broker = *broker
	}
	if *topic != "" {
		cfg.Relay.Topic = *topic
	}

	serialCfg := serial.DefaultConfig(*device)
	serialCfg.Baud = *baud
	port, err := serial.Open(serialCfg)
	if err != nil {
		glog.Fatal(err)
	}
	defer port.Close()

	client, err := relay.NewPahoBroker(cfg.Relay.Broker, relay.ClientID("irproxy-relay"))
	if err != nil {
		glog.Fatalf("broker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
	}()

	r := relay.New(cfg.RelaySettings(), client, port)
	glog.Infof("relaying %s from %s to %s", cfg.Relay.Topic, cfg.Relay.Broker, *device)
	if err := r.Run(ctx); err != nil {
		glog.Errorf("relay: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	stats := r.Stats()
	glog.Infof("forwarded %d frames, dropped %d, %d keepalives",
		stats.Forwarded, stats.Invalid, stats.Keepalives)
}
