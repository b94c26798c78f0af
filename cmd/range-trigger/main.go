package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/range.trigger/internal/api"
	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/config"
	"github.com/banshee-data/range.trigger/internal/db"
	"github.com/banshee-data/range.trigger/internal/filter"
	"github.com/banshee-data/range.trigger/internal/monitoring"
	"github.com/banshee-data/range.trigger/internal/publish"
	"github.com/banshee-data/range.trigger/internal/sensing"
	"github.com/banshee-data/range.trigger/internal/sensorstate"
	"github.com/banshee-data/range.trigger/internal/serialmux"
	"github.com/banshee-data/range.trigger/internal/servo"
	"github.com/banshee-data/range.trigger/internal/timeutil"
	"github.com/banshee-data/range.trigger/internal/trigger"
	"github.com/banshee-data/range.trigger/internal/version"
)

var (
	port         = flag.String("port", "/dev/ttyS0", "Serial port of the LiDAR (ignored in dev mode)")
	baud         = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	configPath   = flag.String("config", "", "Tuning config JSON (built-in defaults when empty)")
	dbPath       = flag.String("db", "range_trigger.db", "Trigger journal sqlite path (empty disables the journal)")
	listen       = flag.String("listen", ":8080", "HTTP listen address (empty disables the API)")
	pigpioAddr   = flag.String("pigpio", servo.DefaultPigpioAddr, "pigpiod socket address")
	pitchPin     = flag.Int("pitch-pin", servo.DefaultPitchPin, "GPIO pin of the pitch servo")
	yawPin       = flag.Int("yaw-pin", servo.DefaultYawPin, "GPIO pin of the yaw servo")
	mqttBroker   = flag.String("mqtt-broker", "", "MQTT broker URL for trigger events, e.g. tcp://localhost:1883 (empty disables)")
	mqttTopic    = flag.String("mqtt-topic", publish.DefaultTopic, "MQTT topic for trigger events")
	devMode      = flag.Bool("dev", false, "Use a simulated sensor instead of the serial port")
	disableServo = flag.Bool("disable-servo", false, "Log servo moves instead of driving pigpiod")
	trace        = flag.Bool("trace", false, "Log the per-cycle data line of the decision loop")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("range-trigger %s\n", version.Current())
		return
	}
	monitoring.SetTrace(*trace)

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}

	// Servo init failure is fatal and must happen before any loop starts.
	var actuator servo.Actuator = servo.Disabled{}
	if !*disableServo {
		p, err := servo.Dial(*pigpioAddr, *pitchPin, *yawPin)
		if err != nil {
			log.Fatalf("failed to initialise servo: %v", err)
		}
		actuator = p
	}
	defer func() {
		if err := actuator.Stop(); err != nil {
			log.Printf("servo cleanup: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	var source *serialmux.PollingPort
	if *devMode {
		simPort := serialmux.NewTestableSerialPort()
		source, err = serialmux.NewPollingPort(simPort, serialmux.DefaultPollTimeout)
		if err != nil {
			log.Fatalf("failed to create simulated port: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			feedSimulator(ctx, simPort, benewake.NewSimulator(uint64(time.Now().UnixNano())), timeutil.RealClock{})
		}()
		log.Printf("dev mode: simulated LiDAR")
	} else {
		source, err = serialmux.OpenPolling(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			log.Fatalf("failed to open LiDAR port: %v", err)
		}
		log.Printf("opened LiDAR on %s at %d baud", *port, *baud)
	}
	defer source.Close()

	var journal *db.DB
	if *dbPath != "" {
		journal, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open trigger journal: %v", err)
		}
		defer journal.Close()
		if n, err := journal.TriggerCount(); err == nil {
			log.Printf("trigger journal %s holds %d events", *dbPath, n)
		}
	}

	var pub *publish.MQTTPublisher
	if *mqttBroker != "" {
		pub, err = publish.Connect(*mqttBroker, "range-trigger-"+uuid.NewString()[:8], *mqttTopic)
		if err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer pub.Close()
	}

	median, err := filter.NewMedian(tuning.GetFilterWindow())
	if err != nil {
		log.Fatalf("invalid filter window: %v", err)
	}
	store := sensorstate.NewStore(nil)
	reader := benewake.NewReader(source)
	sensingLoop := sensing.NewLoop(reader, median, store, nil, tuning.GetSensingInterval())

	act := &actuation{
		mover: servo.NewMover(actuator, servo.LimitsFromTuning(tuning), uint64(time.Now().UnixNano())),
	}
	if journal != nil {
		act.journal = journal
	}
	if pub != nil {
		act.pub = pub
	}
	decisionLoop := trigger.NewLoop(trigger.ConfigFromTuning(tuning), store, act, nil)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sensingLoop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sensing loop: %v", err)
		}
		log.Print("sensing routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := decisionLoop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("decision loop: %v", err)
		}
		log.Print("decision routine terminated")
	}()

	if *listen != "" {
		src := api.Sources{State: store, Loop: decisionLoop, Decoder: reader, Sensing: sensingLoop}
		if journal != nil {
			src.Journal = journal
		}
		mux := api.NewServer(src).ServeMux()
		if journal != nil {
			if err := journal.AttachAdminRoutes(mux); err != nil {
				log.Fatalf("failed to attach admin routes: %v", err)
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, *listen, api.LoggingMiddleware(mux))
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// serveHTTP runs the API server until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}
