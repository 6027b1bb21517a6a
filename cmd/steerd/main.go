// steerd -- cooperative Wi-Fi client steering daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/steerd/internal/config"
	"github.com/dantte-lp/steerd/internal/driver"
	"github.com/dantte-lp/steerd/internal/gossip"
	"github.com/dantte-lp/steerd/internal/metrics"
	"github.com/dantte-lp/steerd/internal/steer"
	appversion "github.com/dantte-lp/steerd/internal/version"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// tickInterval is how often the decision core's clock advances. It is
// intentionally finer-grained than any of steer.Config's own timers (all
// of which are multiples of a second) so kick/scan/roam deadlines fire
// within a tick of becoming due.
const tickInterval = 200 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("steerd starting",
		slog.String("version", appversion.Version),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Int("local_nodes", len(cfg.Nodes)),
	)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	drv, err := driver.Dial(logger)
	if err != nil {
		logger.Error("failed to connect to D-Bus", slog.String("error", err.Error()))
		return 1
	}
	defer drv.Close()

	steerCfg := cfg.Steer.ToSteerConfig()
	events := &multiSink{sinks: []steer.EventSink{
		steer.NewSlogSink(logger),
		metrics.NewSink(collector),
	}}
	eng := steer.NewEngine(&steerCfg, drv, events, logger)

	if err := registerLocalNodes(eng, drv, cfg.Nodes); err != nil {
		logger.Error("failed to register local nodes", slog.String("error", err.Error()))
		return 1
	}

	transport, adapter, err := dialGossip(cfg.Gossip, eng, collector, logger)
	if err != nil {
		logger.Error("failed to start gossip transport", slog.String("error", err.Error()))
		return 1
	}
	defer transport.Close()

	if err := runDaemon(cfg, eng, drv, transport, adapter, collector, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("steerd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("steerd stopped")
	return 0
}

// multiSink fans a single Event out to every sink it wraps, letting the
// daemon keep both structured logging and Prometheus counters wired to
// the same Engine without widening steer.EventSink's contract to accept
// more than one subscriber.
type multiSink struct {
	sinks []steer.EventSink
}

func (m *multiSink) Emit(ev steer.Event) {
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}

// registerLocalNodes seeds the registry with every statically declared
// local BSS and tells the driver which D-Bus object path answers for it.
func registerLocalNodes(eng *steer.Engine, drv *driver.DBusDriver, nodes []config.NodeConfig) error {
	for _, nc := range nodes {
		node := eng.Registry.UpsertNode(nc.Key, steer.NodeLocal, eng.Now())
		node.SSID = nc.SSID
		node.FreqMHz = nc.FreqMHz
		node.Channel = nc.Channel
		node.OpClass = nc.OpClass
		node.MaxAssoc = nc.MaxAssoc

		path := dbus.ObjectPath(nc.ObjectPath)
		if nc.ObjectPath == "" {
			path = drv.DefaultObjectPath(nc.Key)
		}
		drv.RegisterNode(nc.Key, path)
	}
	return nil
}

// dialGossip joins the multicast mesh and returns the transport plus the
// adapter that will translate inbound envelopes into Engine calls.
func dialGossip(gc config.GossipConfig, eng *steer.Engine, collector *metrics.Collector, logger *slog.Logger) (*gossip.Transport, *gossip.EngineAdapter, error) {
	group, err := gc.GroupIP()
	if err != nil {
		return nil, nil, err
	}

	self, err := gossip.NewInstanceID()
	if err != nil {
		return nil, nil, fmt.Errorf("allocate gossip instance id: %w", err)
	}

	transport, err := gossip.Dial(gossip.Config{
		Group:     group,
		Port:      gc.Port,
		IfaceName: gc.Interface,
	}, self, logger)
	if err != nil {
		return nil, nil, err
	}

	adapter := &gossip.EngineAdapter{Engine: eng, Log: logger, Metrics: collector}
	return transport, adapter, nil
}

// runDaemon starts every long-running goroutine (decision-core tick loop,
// D-Bus driver dispatch, gossip send/receive, metrics HTTP server, SIGHUP
// reload) under an errgroup tied to process signals, and blocks until one
// of them fails or the process is asked to stop.
func runDaemon(
	cfg *config.Config,
	eng *steer.Engine,
	drv *driver.DBusDriver,
	transport *gossip.Transport,
	adapter *gossip.EngineAdapter,
	collector *metrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return drv.Run(gCtx, eng)
	})

	g.Go(func() error {
		return transport.Run(gCtx, adapter)
	})

	g.Go(func() error {
		return runTickLoop(gCtx, eng, collector)
	})

	g.Go(func() error {
		return runGossipSender(gCtx, eng, transport, collector, cfg.Gossip.SendInterval, logger)
	})

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// runTickLoop advances the decision core's clock on a fixed interval and
// refreshes the registry-size gauges once per tick.
func runTickLoop(ctx context.Context, eng *steer.Engine, collector *metrics.Collector) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			eng.Tick(steer.Time(now.UnixMilli()))
			collector.ObserveRegistry(eng.Registry)
		}
	}
}

// runGossipSender periodically republishes every locally owned node's
// summary and every locally observed station measurement over the
// gossip transport, so peers converge on this instance's view within
// roughly one interval.
func runGossipSender(ctx context.Context, eng *steer.Engine, transport *gossip.Transport, collector *metrics.Collector, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sendLocalNodeUpdates(eng, transport, collector, logger)
			sendLocalObservations(eng, transport, collector, logger)
		}
	}
}

func sendLocalNodeUpdates(eng *steer.Engine, transport *gossip.Transport, collector *metrics.Collector, logger *slog.Logger) {
	now := time.Now().UnixMilli()
	for _, node := range eng.Registry.LocalNodes() {
		msg := gossip.NodeUpdate{
			NodeKey:         node.Key,
			SSID:            node.SSID,
			FreqMHz:         node.FreqMHz,
			Channel:         node.Channel,
			OpClass:         node.OpClass,
			Noise:           node.Noise,
			NAssoc:          node.NAssoc,
			MaxAssoc:        node.MaxAssoc,
			Load:            node.Load,
			Disabled:        node.Disabled,
			SentAtUnixMilli: now,
		}
		sendEnvelope(transport, collector, logger, string(gossip.KindNodeUpdate), func() ([]byte, error) {
			return gossip.EncodeNodeUpdate(msg)
		})
	}
}

// sendLocalObservations republishes measurements this instance itself
// collected (Node.Type == NodeLocal), never a measurement learned from
// gossip -- relaying someone else's observation back onto the mesh would
// let stale data circulate indefinitely instead of expiring at its
// source.
func sendLocalObservations(eng *steer.Engine, transport *gossip.Transport, collector *metrics.Collector, logger *slog.Logger) {
	now := time.Now().UnixMilli()
	for _, sta := range eng.Registry.Stations() {
		for _, m := range sta.Measurements() {
			if m.Node.Type != steer.NodeLocal {
				continue
			}
			msg := gossip.StaObservation{
				NodeKey:         m.Node.Key,
				StationMAC:      driver.FormatMAC(sta.Addr),
				RCPI:            m.RCPI,
				RSNI:            m.RSNI,
				SentAtUnixMilli: now,
			}
			sendEnvelope(transport, collector, logger, string(gossip.KindStaObservation), func() ([]byte, error) {
				return gossip.EncodeStaObservation(msg)
			})
		}
	}
}

// sendEnvelope encodes a payload, re-parses it back into an Envelope (the
// same representation Transport.Send expects and Decode hands to
// EngineAdapter on the receiving side), and ships it over the wire.
func sendEnvelope(transport *gossip.Transport, collector *metrics.Collector, logger *slog.Logger, kind string, encode func() ([]byte, error)) {
	raw, err := encode()
	if err != nil {
		logger.Warn("failed to encode gossip envelope", "kind", kind, "err", err)
		return
	}
	env, err := gossip.Decode(raw)
	if err != nil {
		logger.Warn("failed to parse freshly encoded gossip envelope", "kind", kind, "err", err)
		return
	}
	if err := transport.Send(env); err != nil {
		logger.Warn("failed to send gossip envelope", "kind", kind, "err", err)
		return
	}
	collector.IncGossipSent(kind)
}

// -------------------------------------------------------------------------
// SIGHUP reload
// -------------------------------------------------------------------------

// handleSIGHUP listens for SIGHUP and reloads the dynamic log level from
// the configuration file. Node topology and steer.Config tunables are not
// hot-reloaded: changing the set of local BSSes at runtime would require
// renegotiating driver registrations and in-flight candidate lists, which
// is simpler and safer to handle with a restart.
func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading log level")
			reloadLogLevel(configPath, logLevel, logger)
		}
	}
}

func reloadLogLevel(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings",
			slog.String("error", err.Error()))
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// HTTP / shutdown plumbing
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func gracefulShutdown(ctx context.Context, servers ...*http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Config / logger setup
// -------------------------------------------------------------------------

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
