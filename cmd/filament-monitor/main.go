// Command filament-monitor watches the humidity inside a filament enclosure
// and raises a warning on an LED strip, MQTT and the web when it gets too damp.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sweeney/filament-monitor/internal/alert"
	"github.com/sweeney/filament-monitor/internal/config"
	"github.com/sweeney/filament-monitor/internal/gpio"
	"github.com/sweeney/filament-monitor/internal/indicator"
	"github.com/sweeney/filament-monitor/internal/logic"
	"github.com/sweeney/filament-monitor/internal/metrics"
	"github.com/sweeney/filament-monitor/internal/mqtt"
	"github.com/sweeney/filament-monitor/internal/sensor"
	"github.com/sweeney/filament-monitor/internal/status"
	"github.com/sweeney/filament-monitor/internal/store"
	"github.com/sweeney/filament-monitor/internal/web"
)

type options struct {
	poll          time.Duration
	humidityLimit float64
	dwell         int
	override      logic.OverridePolicy
	i2cBus        string
	addr1, addr2  int
	ledPixels     int
	spiPort       string
	pinButton     int
	buttonPoll    time.Duration
	broker        string
	heartbeat     time.Duration
	httpAddr      string
	dataFile      string
	simulate      bool
	fallbackSim   bool
	printState    bool
	configPath    string
	limitPinned   bool
	mail          alert.Config
}

func main() {
	poll := flag.Duration("poll", 2*time.Second, "Sensor polling interval (one controller tick)")
	limit := flag.Float64("humidity-limit", logic.DefaultHumidityLimit, "Average humidity (%RH) above which the warning is raised")
	dwell := flag.Int("dwell", logic.DefaultDwellLimit, "Ticks below the limit before the warning clears")
	override := flag.String("override", string(logic.OverrideTimed), `Override policy: "timed" (expires after the dwell) or "manual"`)
	i2cBus := flag.String("i2c-bus", "", "I2C bus name (empty for the first bus)")
	addr1 := flag.Int("addr1", sensor.DefaultAddr1, "I2C address of sensor 1")
	addr2 := flag.Int("addr2", sensor.DefaultAddr2, "I2C address of sensor 2")
	ledPixels := flag.Int("led-pixels", indicator.DefaultPixels, "Number of WS2812 pixels")
	spiPort := flag.String("spi-port", "", "SPI port for the LED strip (empty for the first port)")
	pinButton := flag.Int("pin-button", gpio.DefaultPinButton, "BCM pin of the override button (-1 to disable)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	dataFile := flag.String("data-file", "", "Write the latest readings to this file every tick (empty to disable)")
	simulate := flag.Bool("simulate", false, "Use simulated sensors and a console indicator")
	fallbackSim := flag.Bool("fallback-sim", true, "Fall back to simulation if the hardware cannot be opened")
	printState := flag.Bool("print-state", false, "Print current readings and exit")
	configPath := flag.String("config", "", "TOML config file (values apply to flags not given on the command line)")
	mailDomain := flag.String("mail-domain", "", "Mailgun domain for warning e-mails")
	mailKey := flag.String("mail-key", "", "Mailgun API key")
	mailFrom := flag.String("mail-from", "", "Sender address for warning e-mails")
	mailTo := flag.String("mail-to", "", "Comma-separated recipients for warning e-mails")

	flag.Parse()

	explicit := config.Explicit(flag.CommandLine)
	if *configPath != "" {
		f, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		if _, err := f.Apply(flag.CommandLine); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	policy, err := logic.ParseOverridePolicy(*override)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	opts := options{
		poll:          *poll,
		humidityLimit: *limit,
		dwell:         *dwell,
		override:      policy,
		i2cBus:        *i2cBus,
		addr1:         *addr1,
		addr2:         *addr2,
		ledPixels:     *ledPixels,
		spiPort:       *spiPort,
		pinButton:     *pinButton,
		buttonPoll:    50 * time.Millisecond,
		broker:        *broker,
		heartbeat:     *heartbeat,
		httpAddr:      *httpAddr,
		dataFile:      *dataFile,
		simulate:      *simulate,
		fallbackSim:   *fallbackSim,
		printState:    *printState,
		configPath:    *configPath,
		limitPinned:   explicit["humidity-limit"],
		mail: alert.Config{
			Domain:     *mailDomain,
			APIKey:     *mailKey,
			Sender:     *mailFrom,
			Recipients: splitList(*mailTo),
		},
	}
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	cfg, err := opts.controllerConfig()
	if err != nil {
		return err
	}
	ctrl, err := logic.NewController(cfg)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	// Initialize sensors
	s1, s2, simulated, err := openSensors(opts)
	if err != nil {
		return err
	}
	defer s1.Close()
	defer s2.Close()

	// Print state mode
	if opts.printState {
		r, err := sensor.ReadPair(s1, s2, time.Now())
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Print(formatReadings(r))
		return nil
	}

	led, err := openIndicator(opts, simulated)
	if err != nil {
		return err
	}
	defer led.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus
	if opts.broker != "" {
		p, err := mqtt.NewRealPublisher(opts.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:         opts.poll.Milliseconds(),
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		DwellTicks:     ctrl.DwellLimit(),
		OverridePolicy: string(ctrl.Policy()),
		Broker:         opts.broker,
		HTTPAddr:       opts.httpAddr,
		DataFile:       opts.dataFile,
		Simulated:      simulated,
	})
	tracker.SetWarning(status.WarningFrom(ctrl))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	metrics.SetWarning(ctrl.Current(), ctrl.HumidityLimit())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := loopDeps{
		sensor1:    s1,
		sensor2:    s2,
		led:        led,
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  opts.heartbeat,
		watchdog: func() {
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		},
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, ctrl, metrics.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		deps.broadcast = srv.Broadcast
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	if opts.mail.Enabled() {
		deps.notifier = alert.NewMailgun(opts.mail)
		log.Printf("warning e-mails enabled: %d recipient(s)", len(opts.mail.Recipients))
	}

	if opts.dataFile != "" {
		deps.dataFile = store.NewFile(opts.dataFile)
	}

	// Override button runs on its own faster ticker so short presses are seen.
	if opts.pinButton >= 0 && !simulated {
		button, err := gpio.NewRealReader(opts.pinButton)
		if err != nil {
			log.Printf("override button disabled: %v", err)
		} else {
			defer button.Close()
			buttonTicker := time.NewTicker(opts.buttonPoll)
			defer buttonTicker.Stop()
			go runButton(button, ctrl, tracker, buttonTicker.C, ctx.Done())
		}
	}

	if opts.configPath != "" && !opts.limitPinned {
		err := config.Watch(ctx, opts.configPath, config.DefaultDebounce, func(f config.File) {
			applyLimit(f, ctrl, tracker)
		})
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		}
	}

	log.Printf("started: poll=%v limit=%.1f dwell=%d override=%s broker=%q heartbeat=%v simulated=%v",
		opts.poll, ctrl.HumidityLimit(), ctrl.DwellLimit(), ctrl.Policy(), opts.broker, opts.heartbeat, simulated)

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("sd_notify ready: %v", err)
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(deps, time.Now, ticker.C, sigCh)
}

// controllerConfig checks the warning flags and builds the controller config.
func (o options) controllerConfig() (logic.ControllerConfig, error) {
	if math.IsNaN(o.humidityLimit) || o.humidityLimit < 0 || o.humidityLimit > 100 {
		return logic.ControllerConfig{}, fmt.Errorf("-humidity-limit %v outside 0..100", o.humidityLimit)
	}
	if o.dwell < 0 {
		return logic.ControllerConfig{}, fmt.Errorf("-dwell %d must not be negative", o.dwell)
	}
	return logic.ControllerConfig{
		HumidityLimit: o.humidityLimit,
		DwellLimit:    o.dwell,
		Policy:        o.override,
	}, nil
}

func openSensors(opts options) (sensor.Sensor, sensor.Sensor, bool, error) {
	if !opts.simulate {
		s1, s2, err := sensor.OpenPair(opts.i2cBus, uint16(opts.addr1), uint16(opts.addr2))
		if err == nil {
			return s1, s2, false, nil
		}
		if !opts.fallbackSim {
			return nil, nil, false, fmt.Errorf("init sensors: %w", err)
		}
		log.Printf("sensor init failed, using simulator: %v", err)
	}
	seed := time.Now().UnixNano()
	return sensor.NewSimulator(22.0, 45.0, seed), sensor.NewSimulator(23.0, 47.0, seed+1), true, nil
}

func openIndicator(opts options, simulated bool) (indicator.Indicator, error) {
	if simulated {
		return indicator.NewConsole(), nil
	}
	strip, err := indicator.NewStrip(opts.spiPort, opts.ledPixels)
	if err == nil {
		return strip, nil
	}
	if !opts.fallbackSim {
		return nil, fmt.Errorf("init led strip: %w", err)
	}
	log.Printf("led strip init failed, using console indicator: %v", err)
	return indicator.NewConsole(), nil
}

// loopDeps are the collaborators of one runLoop. Optional ones may be nil.
type loopDeps struct {
	sensor1, sensor2 sensor.Sensor
	led              indicator.Indicator
	ctrl             *logic.Controller
	publisher        mqtt.Publisher
	mqttStatus       mqtt.ConnectionStatus
	tracker          *status.Tracker
	notifier         alert.Notifier
	dataFile         *store.File
	broadcast        func(status.Snapshot)
	watchdog         func()
	heartbeat        time.Duration

	// alerts tracks e-mails still being sent; runLoop waits for them on shutdown.
	alerts *sync.WaitGroup
}

// statusEvery is how many ticks pass between status log lines.
const statusEvery = 10

func runLoop(d loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	hb := logic.NewHeartbeat(d.heartbeat, startTime)
	if d.alerts == nil {
		d.alerts = new(sync.WaitGroup)
	}

	shown := d.ctrl.Current().Color
	if err := d.led.SetColor(shown); err != nil {
		log.Printf("indicator error: %v", err)
	}

	ticks := 0
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			snap := d.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			if err := d.led.Clear(); err != nil {
				log.Printf("indicator clear error: %v", err)
			}
			waitAlerts(d.alerts, alert.SendTimeout)
			return nil

		case <-tick:
			t := now()
			ticks++
			if d.watchdog != nil {
				d.watchdog()
			}
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}

			if r, ok := d.step(t, &shown); ok && ticks%statusEvery == 0 {
				log.Printf("status: temp=%.1f humidity=%.1f state=%s limit=%.1f",
					r.AverageTemperature, r.AverageHumidity, d.ctrl.State(), d.ctrl.HumidityLimit())
			}

			// Check for heartbeat
			if hbData, ok := hb.Check(t); ok {
				snap := d.tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v ticks=%d read_errors=%d raised=%d cleared=%d",
					hbData.Uptime, snap.Counts.Ticks, snap.Counts.ReadErrors,
					snap.Warning.Counts.Raised, snap.Warning.Counts.Cleared)

				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					d.tracker.SetNetwork(net)
				}
				snap = d.tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hbData.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// step runs one controller tick. It reports false if the tick was skipped.
func (d loopDeps) step(t time.Time, shown *logic.RGB) (logic.Readings, bool) {
	r, err := sensor.ReadPair(d.sensor1, d.sensor2, t)
	if err != nil {
		log.Printf("sensor read error: %v", err)
		var re *sensor.ReadError
		if errors.As(err, &re) {
			metrics.IncReadError(re.Sensor)
		} else {
			metrics.IncReadError(0)
		}
		d.tracker.RecordReadError()
		return r, false
	}

	res, err := d.ctrl.Step(r.AverageHumidity)
	if err != nil {
		var invalid *logic.InvalidSampleError
		if errors.As(err, &invalid) {
			log.Printf("invalid sample rejected: %v", invalid)
		} else {
			log.Printf("controller error: %v", err)
		}
		return r, false
	}

	if res.Color != *shown {
		if err := d.led.SetColor(res.Color); err != nil {
			log.Printf("indicator error: %v", err)
		} else {
			*shown = res.Color
		}
	}

	limit := d.ctrl.HumidityLimit()
	d.tracker.Update(r, status.WarningFrom(d.ctrl))
	metrics.SetReadings(r)
	metrics.SetWarning(res, limit)

	if err := d.publisher.PublishReadings(r); err != nil {
		log.Printf("publish error: %v", err)
	}

	if res.Transition != logic.TransitionNone {
		log.Printf("event: %s (humidity=%.1f limit=%.1f)", res.Transition, r.AverageHumidity, limit)
		event := mqtt.WarningEvent{
			Timestamp:     t,
			Transition:    res.Transition,
			Active:        res.Active,
			Override:      res.Override,
			Humidity:      r.AverageHumidity,
			HumidityLimit: limit,
		}
		if err := d.publisher.PublishWarning(event); err != nil {
			log.Printf("publish error: %v", err)
		}
		if d.notifier != nil {
			if subject, body, ok := alert.Message(res.Transition, r, limit); ok {
				d.alerts.Add(1)
				go func() {
					defer d.alerts.Done()
					if err := d.notifier.Notify(context.Background(), subject, body); err != nil {
						log.Printf("alert error: %v", err)
					}
				}()
			}
		}
	}

	if d.dataFile != nil {
		if err := d.dataFile.Write(r); err != nil {
			log.Printf("data file error: %v", err)
		}
	}
	if d.broadcast != nil {
		d.broadcast(d.tracker.Snapshot())
	}
	return r, true
}

// waitAlerts blocks until pending alerts are sent or timeout elapses.
func waitAlerts(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("alerts still pending after %v, giving up", timeout)
	}
}

// runButton toggles the override on each press until done is closed.
func runButton(button gpio.Reader, ctrl *logic.Controller, tracker *status.Tracker, tick <-chan time.Time, done <-chan struct{}) {
	var edge gpio.Edge
	for {
		select {
		case <-done:
			return
		case <-tick:
			pressed, err := button.Pressed()
			if err != nil {
				log.Printf("button read error: %v", err)
				continue
			}
			if !edge.Update(pressed) {
				continue
			}
			active := ctrl.ToggleManualOverride()
			tracker.SetWarning(status.WarningFrom(ctrl))
			log.Printf("override set via button: %v", active)
		}
	}
}

// applyLimit applies a reloaded humidity limit.
func applyLimit(f config.File, ctrl *logic.Controller, tracker *status.Tracker) {
	if f.Warning.HumidityLimit == nil {
		return
	}
	limit := *f.Warning.HumidityLimit
	if limit == ctrl.HumidityLimit() {
		return
	}
	if err := ctrl.SetHumidityLimit(limit); err != nil {
		log.Printf("config reload: %v", err)
		return
	}
	tracker.SetWarning(status.WarningFrom(ctrl))
	log.Printf("humidity limit set via config: %.1f", limit)
}

func formatReadings(r logic.Readings) string {
	return fmt.Sprintf("Sensor 1: %.1f C, %.1f %%\nSensor 2: %.1f C, %.1f %%\nAverage: %.1f C, %.1f %%\n",
		r.Temperature1, r.Humidity1, r.Temperature2, r.Humidity2, r.AverageTemperature, r.AverageHumidity)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
