package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/banshee-data/rover/internal/actuators"
	"github.com/banshee-data/rover/internal/api"
	"github.com/banshee-data/rover/internal/config"
	"github.com/banshee-data/rover/internal/control"
	"github.com/banshee-data/rover/internal/hwbus"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/pipeline"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/status"
	"github.com/banshee-data/rover/internal/store"
	"github.com/banshee-data/rover/internal/supervisor"
	"github.com/banshee-data/rover/internal/version"
)

var (
	configPath  = flag.String("config", "", "YAML configuration file")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath      = flag.String("db", "", "sqlite database path (overrides config)")
	logFile     = flag.String("log-file", "", "also write logs to this rotated file (overrides config)")
	showVersion = flag.Bool("version", false, "print version and exit")
)

// shutdownGrace bounds how long main waits for tasks, including the
// actuator safe-stop, after cancellation.
const shutdownGrace = 3 * time.Second

// sensorSet is what a sensor build variant provides.
type sensorSet struct {
	GPS, IMU, Analog, Mag sensors.Reader
	Modem                 status.Provider

	// tasks run under the supervisor alongside the pipelines
	tasks       map[string]func(ctx context.Context) error
	adminRoutes []func(mux *http.ServeMux)
	closers     []io.Closer
}

// actuatorSet is what an actuator build variant provides.
type actuatorSet struct {
	Motor    actuators.Motor
	Steering actuators.Steering
}

// sharedBus opens the I2C bus on first use so the simulated build never
// touches hardware. Real sensors and actuators get the same *hwbus.Bus.
type sharedBus struct {
	name string
	once sync.Once
	bus  *hwbus.Bus
	err  error
}

func (b *sharedBus) Get() (*hwbus.Bus, error) {
	b.once.Do(func() {
		b.bus, b.err = hwbus.Open(b.name)
	})
	return b.bus, b.err
}

func (b *sharedBus) Close() error {
	if b.bus == nil {
		return nil
	}
	return b.bus.Close()
}

func loadConfig() *config.Config {
	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if flag.CommandLine.Changed("listen") {
		cfg.Listen = listen
	}
	if flag.CommandLine.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flag.CommandLine.Changed("log-file") {
		cfg.LogFile = logFile
	}
	return cfg
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := loadConfig()
	if flag.Arg(0) == "migrate" {
		if err := runMigrate(flag.Args()[1:], cfg.GetDBPath(), os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if path := cfg.GetLogFile(); path != "" {
		closer := monitoring.SetupFileLogging(path, monitoring.DefaultFileOptions())
		defer closer.Close()
	}
	log.Printf("starting %s", version.String())
	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// run owns every resource, so a failure after the tasks have started still
// cancels them, waits for the actuator safe-stop and closes the store.
func run(cfg *config.Config) error {
	st, err := store.Open(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	bus := &sharedBus{name: cfg.GetI2CBus()}
	defer bus.Close()

	sens, err := newSensors(cfg, bus)
	if err != nil {
		return fmt.Errorf("failed to initialise sensors: %w", err)
	}
	for _, c := range sens.closers {
		defer c.Close()
	}

	acts, err := newActuators(cfg, bus)
	if err != nil {
		return fmt.Errorf("failed to initialise actuators: %w", err)
	}

	pipelines := []*pipeline.Pipeline{
		{Name: "GPS", Reader: sens.GPS, Sink: st},
		{Name: "IMU", Reader: sens.IMU, Sink: st, Interval: cfg.GetIMUInterval()},
		{Name: "ANALOG", Reader: sens.Analog, Sink: st, Interval: cfg.GetAnalogInterval()},
		{Name: "MAG", Reader: sens.Mag, Sink: st, Interval: cfg.GetMagInterval()},
		status.NewMonitor(sens.Modem, st, cfg.GetModemInterval(), nil),
	}
	// The dead-man window is always control.DefaultDeadMan.
	loop := &control.Loop{
		Source:     st,
		Motor:      acts.Motor,
		Steering:   acts.Steering,
		RetryDelay: cfg.GetRetryDelay(),
	}

	srv := api.NewServer(st)
	srv.SetControlStats(loop.Stats)
	srv.AddPipelines(pipelines...)
	mux := srv.ServeMux()
	if err := st.AttachAdminRoutes(mux); err != nil {
		return fmt.Errorf("failed to attach admin routes: %w", err)
	}
	for _, attach := range sens.adminRoutes {
		attach(mux)
	}

	sup := supervisor.New(context.Background())
	sup.WatchSignals()

	for name, task := range sens.tasks {
		sup.Go(name, task)
	}
	for _, p := range pipelines {
		sup.Go(p.Name, p.Run)
	}
	sup.Go("control", loop.Run)

	httpErr := make(chan error, 1)
	sup.Go("http", func(ctx context.Context) error {
		err := serveHTTP(ctx, cfg.GetListen(), api.LoggingMiddleware(mux))
		if err != nil {
			httpErr <- err
			sup.Shutdown("http server failed")
		}
		return err
	})

	<-sup.Context().Done()
	if !sup.WaitTimeout(shutdownGrace) {
		log.Printf("tasks still running after %v, exiting anyway", shutdownGrace)
	}
	select {
	case err := <-httpErr:
		return fmt.Errorf("failed to start server: %w", err)
	default:
		return nil
	}
}

// serveHTTP runs the operator API until ctx is done. A listen failure is
// returned so the caller can shut everything down in order.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}
