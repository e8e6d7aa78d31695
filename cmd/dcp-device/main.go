// dcp-device runs a PROFINET DCP responder on one Ethernet interface.
//
// It answers Identify, Get and Set requests from engineering tools, stores
// permanent writes in a YAML file and flashes an LED on Signal requests.
// Requires CAP_NET_RAW.
//
// Usage:
//
//	dcp-device [-config file] [-interface name]
//
// Every setting can also be given as a DCP_* environment variable, for
// example DCP_IDENTITY_STATIONNAME=plc-1.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/backkem/dcp/pkg/capture"
	"github.com/backkem/dcp/pkg/dcp"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/metrics"
	"github.com/backkem/dcp/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "configuration file (YAML, TOML or JSON)")
	iface := flag.String("interface", "", "Ethernet interface (overrides config)")
	flag.Parse()

	if *iface != "" {
		os.Setenv("DCP_INTERFACE", *iface)
	}
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapFactory{logger}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Sugar().Errorf("dcp-device: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, lf zapFactory) error {
	log := lf.NewLogger("main")

	factory, err := cfg.Factory()
	if err != nil {
		return err
	}

	link, err := transport.OpenPacketLink(cfg.Interface)
	if err != nil {
		return err
	}

	frames := make(chan []byte, 64)
	port, err := transport.NewPort(transport.PortConfig{
		Link: link,
		Handler: func(f []byte) {
			select {
			case frames <- f:
			default:
				log.Warn("receive queue full, frame dropped")
			}
		},
		LoggerFactory: lf,
	})
	if err != nil {
		link.Close()
		return err
	}
	defer port.Stop()

	config := dcp.Config{
		MAC:            link.HardwareAddr(),
		Factory:        factory,
		Storage:        identity.NewFileStorage(cfg.Storage),
		IPConfigurator: loggingIPConfigurator{log: lf.NewLogger("ip")},
		Policy:         identity.Policy{AllowInstanceSet: cfg.Identity.AllowInstanceSet},
		Indicator:      &sysfsLED{path: cfg.LED, log: lf.NewLogger("led")},
		Sender:         port,
		Signal:         dcp.SignalConfig{Flashes: cfg.Signal.Flashes, HalfPeriod: cfg.Signal.HalfPeriod},
		Hello: dcp.HelloConfig{
			Disabled:   cfg.Hello.Disabled,
			Repeats:    cfg.Hello.Repeats,
			Interval:   cfg.Hello.Interval,
			NoAnnounce: cfg.Hello.NoAnnounce,
		},
		LoggerFactory: lf,
	}

	if cfg.Capture != "" {
		c, err := capture.NewFileLogger(cfg.Capture)
		if err != nil {
			return err
		}
		defer c.Close()
		config.Capture = c
	}

	if cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		config.Registerer = reg
		srv := serveMetrics(cfg.Metrics, reg, log)
		defer srv.Close()
	}

	r, err := dcp.NewResponder(config)
	if err != nil {
		return err
	}

	if err := port.Start(); err != nil {
		return err
	}

	log.Infof("listening on %s (%v)", cfg.Interface, link.HardwareAddr())
	if err := r.Hello(); err != nil && !errors.Is(err, dcp.ErrHelloDisabled) {
		log.Warnf("hello: %v", err)
	}
	return r.Run(ctx, frames, cfg.Tick)
}

func serveMetrics(cfg MetricsConfig, reg *prometheus.Registry, log logging.LeveledLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics: %v", err)
		}
	}()
	log.Infof("metrics on %s%s", cfg.Addr, cfg.Path)
	return srv
}
