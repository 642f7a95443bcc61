package main

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sctg-development/photoacoustic-core/internal/acquisition"
	"github.com/sctg-development/photoacoustic-core/internal/action"
	"github.com/sctg-development/photoacoustic-core/internal/action/drivers"
	"github.com/sctg-development/photoacoustic-core/internal/action/pgaudit"
	"github.com/sctg-development/photoacoustic-core/internal/api"
	apimw "github.com/sctg-development/photoacoustic-core/internal/api/middleware"
	"github.com/sctg-development/photoacoustic-core/internal/config"
	"github.com/sctg-development/photoacoustic-core/internal/graph"
	"github.com/sctg-development/photoacoustic-core/internal/graph/nodes"
	"github.com/sctg-development/photoacoustic-core/internal/metrics"
	"github.com/sctg-development/photoacoustic-core/internal/modbus"
	"github.com/sctg-development/photoacoustic-core/internal/noise"
	"github.com/sctg-development/photoacoustic-core/internal/oauth"
	"github.com/sctg-development/photoacoustic-core/internal/thermal"
	"github.com/sctg-development/photoacoustic-core/internal/thermal/i2c"
	"github.com/sctg-development/photoacoustic-core/internal/thermal/tuning"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	if cfg.HashPassword != "" {
		hash, err := oauth.HashPassword(cfg.HashPassword)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			os.Exit(1)
		}
		fmt.Println(base64.StdEncoding.EncodeToString([]byte(hash)))
		return
	}

	if cfg.TuneRegulatorID != "" {
		if err := runTuningMode(cfg, logger); err != nil {
			slog.Error("tuning run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("starting photoacoustic-core",
		"http_port", cfg.HTTPPort,
		"modbus_port", cfg.Modbus.Port,
		"data_dir", cfg.DataDir,
		"tls", cfg.TLSEnabled(),
	)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	shared := graph.NewSharedData()

	source, err := buildAcquisitionSource(cfg)
	if err != nil {
		slog.Error("failed to build acquisition source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	broadcast := acquisition.NewBroadcast()
	defer broadcast.Close()

	frames, err := source.Frames(appCtx)
	if err != nil {
		slog.Error("failed to start acquisition source", "error", err)
		os.Exit(1)
	}
	go func() {
		for frame := range frames {
			broadcast.Publish(frame)
		}
		if err := source.Err(); err != nil {
			slog.Error("acquisition source stopped with error", "error", err)
		}
	}()

	dispatcherRegistry, err := buildDispatchers(appCtx, cfg, logger)
	if err != nil {
		slog.Error("failed to build action drivers", "error", err)
		os.Exit(1)
	}
	defer shutdownDispatchers(dispatcherRegistry)

	graphs, err := buildGraphs(cfg, shared, dispatcherRegistry)
	if err != nil {
		slog.Error("failed to build processing graph", "error", err)
		os.Exit(1)
	}
	if len(graphs) == 0 {
		slog.Error("no processing graphs configured, nothing to do")
		os.Exit(1)
	}

	graphInput, unsubscribe := broadcast.Subscribe()
	defer unsubscribe()
	go pumpFrames(appCtx, graphInput, graphs)

	regulators, err := buildThermalFleet(appCtx, cfg, logger)
	if err != nil {
		slog.Error("failed to build thermal regulator fleet", "error", err)
		os.Exit(1)
	}

	modbusRegs := modbus.NewRegisterMap(shared, func() int64 { return time.Now().Unix() })
	modbusAddr := fmt.Sprintf("%s:%d", addrOrDefault(cfg.Modbus.Address), cfg.Modbus.Port)
	modbusSrv := modbus.NewServer(modbusAddr, modbusRegs, logger)
	go func() {
		if err := modbusSrv.ListenAndServe(appCtx); err != nil {
			slog.Error("modbus server stopped", "error", err)
		}
	}()

	oauthServer, err := buildOAuthServer(cfg, logger)
	if err != nil {
		slog.Error("failed to build oauth server", "error", err)
		os.Exit(1)
	}

	history := findActionHistory(graphs)

	if dsn := cfg.Document.Audit.PostgresDSN; dsn != "" {
		auditStore, err := pgaudit.New(dsn)
		if err != nil {
			slog.Error("failed to open action-history audit store", "error", err)
			os.Exit(1)
		}
		defer auditStore.Close()

		interval := cfg.Document.Audit.FlushInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		go runAuditFlushLoop(appCtx, history, auditStore, interval)
	}

	graphTimingProviders := make([]metrics.GraphNodeTimingProvider, 0, len(graphs))
	for _, g := range graphs {
		graphTimingProviders = append(graphTimingProviders, g)
	}
	collector := metrics.NewCollector(graphTimingProviders, action.Registry(dispatcherRegistry), regulators, modbusSrv, time.Now())
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collector)

	apiServer := api.NewServer(cfg, shared, graphs, regulators, history, oauthServer)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Handler:      apimw.Recoverer(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	var redirectSrv *http.Server

	switch {
	case cfg.TLSEnabled():
		httpSrv.Addr = fmt.Sprintf(":%d", cfg.HTTPPort)
		httpSrv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		go func() {
			slog.Info("https server listening", "addr", httpSrv.Addr)
			if err := httpSrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		if cfg.RedirectPort != 0 {
			redirectSrv = &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.RedirectPort),
				Handler:      apimw.HTTPSRedirectHandler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			go func() {
				slog.Info("http redirect server listening", "addr", redirectSrv.Addr)
				if err := redirectSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()
		}
	default:
		httpSrv.Addr = fmt.Sprintf(":%d", cfg.HTTPPort)
		go func() {
			slog.Info("http server listening", "addr", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	appCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if redirectSrv != nil {
		if err := redirectSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http redirect server shutdown error", "error", err)
		}
	}

	slog.Info("photoacoustic-core stopped")
}

// pumpFrames lifts each acquired frame into the graph's tagged-union
// representation and executes it against every configured graph.
func pumpFrames(ctx context.Context, frames <-chan acquisition.AudioFrame, graphs map[string]*graph.Graph) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			input := graph.FromAudioFrame(frame)
			for _, g := range graphs {
				g.Execute(input)
			}
		case <-ctx.Done():
			return
		}
	}
}

func addrOrDefault(addr string) string {
	if addr == "" {
		return "0.0.0.0"
	}
	return addr
}

// buildAcquisitionSource constructs the configured audio source (spec
// §4.2: device, file, mock, or simulated), defaulting to a mock source
// when no acquisition document section is present.
func buildAcquisitionSource(cfg *config.Config) (acquisition.Source, error) {
	acq := cfg.Document.Acquisition
	frameSize := acq.FrameSize
	if frameSize <= 0 {
		frameSize = 4096
	}
	sampleRate := acq.SampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}

	switch acq.Kind {
	case "file":
		return acquisition.NewFileSource(acq.File.Path, frameSize)
	case "simulated":
		mode := noise.ModulationMode(acq.Simulated.ModulationMode)
		if mode == "pulse" {
			mode = noise.ModulationPulsed
		}
		if mode == "" {
			mode = noise.ModulationAmplitude
		}
		return acquisition.NewSimulatedSource(acquisition.SimulatedSourceConfig{
			SampleRate:               sampleRate,
			FrameSize:                frameSize,
			BackgroundNoiseAmplitude: acq.Simulated.BackgroundNoiseAmplitude,
			ResonanceFrequency:       acq.Simulated.ResonanceFrequency,
			LaserModulationDepth:     acq.Simulated.LaserModulationDepth,
			SignalAmplitude:          acq.Simulated.SignalAmplitude,
			PhaseOppositionDegrees:   acq.Simulated.PhaseOppositionDegrees,
			TemperatureDriftFactor:   acq.Simulated.TemperatureDriftFactor,
			GasFlowNoiseFactor:       acq.Simulated.GasFlowNoiseFactor,
			SNRFactorDB:              acq.Simulated.SNRFactorDB,
			ModulationMode:           mode,
			PulseWidthSeconds:        acq.Simulated.PulseWidthSeconds,
			PulseFrequencyHz:         acq.Simulated.PulseFrequencyHz,
			RealTime:                 acq.Simulated.RealTime,
		}), nil
	case "device":
		return nil, fmt.Errorf("acquisition kind %q requires a platform-specific DeviceReader; none is wired into this build", acq.Kind)
	case "mock", "":
		return acquisition.NewMockSource(acquisition.MockSourceConfig{
			SampleRate:  sampleRate,
			FrameSize:   frameSize,
			Correlation: acq.Mock.Correlation,
			Amplitude:   acq.Mock.Amplitude,
			RealTime:    acq.Mock.RealTime,
		}), nil
	default:
		return nil, fmt.Errorf("unknown acquisition kind %q", acq.Kind)
	}
}

// buildDispatchers starts one action.Dispatcher per configured driver,
// keyed by driver type so graph node specs can reference it with
// params.driver.
func buildDispatchers(ctx context.Context, cfg *config.Config, logger *slog.Logger) (map[string]*action.Dispatcher, error) {
	out := make(map[string]*action.Dispatcher)
	dc := cfg.Document.Drivers

	if dc.HTTP != nil {
		d := drivers.NewHTTPSCallbackDriver(dc.HTTP.URL)
		if dc.HTTP.BearerToken != "" {
			d = d.WithAuthHeader("Authorization", "Bearer "+dc.HTTP.BearerToken)
		}
		if dc.HTTP.DigestUsername != "" {
			d = d.WithDigestAuth(dc.HTTP.DigestUsername, dc.HTTP.DigestPassword)
		}
		dispatcher, err := action.NewDispatcher(ctx, d, logger)
		if err != nil {
			return nil, fmt.Errorf("https callback driver: %w", err)
		}
		out["https"] = dispatcher
	}

	if dc.Redis != nil {
		var d *drivers.RedisDriver
		if dc.Redis.Channel != "" {
			d = drivers.NewRedisPubSubDriver(dc.Redis.Addr, dc.Redis.Password, dc.Redis.DB, dc.Redis.Channel)
		} else {
			d = drivers.NewRedisKeyValueDriver(dc.Redis.Addr, dc.Redis.Password, dc.Redis.DB, "photoacoustic", time.Minute)
		}
		dispatcher, err := action.NewDispatcher(ctx, d, logger)
		if err != nil {
			return nil, fmt.Errorf("redis driver: %w", err)
		}
		out["redis"] = dispatcher
	}

	if dc.Kafka != nil {
		d := drivers.NewKafkaDriver(dc.Kafka.Brokers, dc.Kafka.Topic)
		dispatcher, err := action.NewDispatcher(ctx, d, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka driver: %w", err)
		}
		out["kafka"] = dispatcher
	}

	if dc.Push != nil {
		d := drivers.NewFCMDriver(dc.Push.ServiceAccountJSONPath, dc.Push.Topic)
		dispatcher, err := action.NewDispatcher(ctx, d, logger)
		if err != nil {
			return nil, fmt.Errorf("push driver: %w", err)
		}
		out["push"] = dispatcher
	}

	return out, nil
}

func shutdownDispatchers(registry map[string]*action.Dispatcher) {
	for _, d := range registry {
		d.Shutdown(5 * time.Second)
	}
}

// buildGraphs loads the graph topology document and compiles it into
// one executable graph per entry.
func buildGraphs(cfg *config.Config, shared *graph.SharedData, dispatchers map[string]*action.Dispatcher) (map[string]*graph.Graph, error) {
	path := cfg.Document.Graph.DefinitionPath
	if path == "" {
		return nil, fmt.Errorf("graph definition_path not configured")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph definition: %w", err)
	}

	var specs []graph.GraphSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		var single graph.GraphSpec
		if err2 := yaml.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("parsing graph definition: %w", err)
		}
		specs = []graph.GraphSpec{single}
	}

	b := graph.NewBuilder(slog.Default())
	nodes.RegisterWithDispatchers(b, dispatchers)

	out := make(map[string]*graph.Graph, len(specs))
	for _, spec := range specs {
		g, err := b.Build(spec, shared)
		if err != nil {
			return nil, fmt.Errorf("building graph %q: %w", spec.ID, err)
		}
		out[spec.ID] = g
	}
	return out, nil
}

// findActionHistory returns the history of the first action_universal
// node found across every graph, for the HTTP API's single action
// history endpoint.
func findActionHistory(graphs map[string]*graph.Graph) *action.History {
	for _, g := range graphs {
		for _, id := range g.Order() {
			n, ok := g.Node(id)
			if !ok {
				continue
			}
			if a, ok := n.(*nodes.ActionUniversalNode); ok {
				return a.Action().History()
			}
		}
	}
	return action.NewHistory(100)
}

// buildThermalFleet constructs one Regulator per configured thermal
// zone, each backed by its own mock I2C bus (spec §4.7: no physical
// I2C transport is available in this build, only the plant-simulator
// mock), and starts its control loop.
func buildThermalFleet(ctx context.Context, cfg *config.Config, logger *slog.Logger) (thermal.Fleet, error) {
	fleet := make(thermal.Fleet)

	for _, rc := range cfg.Document.Thermal {
		if !rc.Enabled {
			continue
		}

		bus := i2c.NewMock()

		var sensor thermal.TemperatureSource
		switch rc.SensorConfig.Kind {
		case "adc_thermistor":
			formula, err := config.CompileThermistorFormula(rc.ConversionFormula)
			if err != nil {
				return nil, fmt.Errorf("thermal regulator %q: %w", rc.ID, err)
			}
			bus.AddADCController(rc.SensorConfig.Address)
			adc := i2c.NewADCThermistor(bus, rc.SensorConfig.Address, rc.SensorConfig.VrefV, formula)
			sensor = thermal.NewADCThermistorSensor(adc)
		case "temp_sensor", "":
			bus.AddTemperatureSensor(rc.SensorConfig.Address)
			sensor = i2c.NewTemperatureSensor(bus, rc.SensorConfig.Address)
		default:
			return nil, fmt.Errorf("thermal regulator %q: unknown sensor kind %q", rc.ID, rc.SensorConfig.Kind)
		}

		gpioAddr := rc.ActuatorConfig.GPIOAddress
		if gpioAddr == 0 {
			gpioAddr = rc.ActuatorConfig.Address
		}
		bus.AddGPIOController(gpioAddr, 0, 1)
		gpio := i2c.NewGPIOController(bus, gpioAddr)
		direction := thermal.NewHBridgeDirectionPins(gpio, 0, 1)

		pwmAddr := rc.ActuatorConfig.Address
		bus.AddPWMController(pwmAddr)
		pwm := i2c.NewPWMController(bus, pwmAddr, byte(rc.ActuatorConfig.PWMChannel))

		bridge := thermal.NewHBridge(direction, pwm)
		pid := thermal.NewPID(rc.PIDParams.Kp, rc.PIDParams.Ki, rc.PIDParams.Kd,
			rc.PIDParams.IntegralMax, rc.PIDParams.OutputMin, rc.PIDParams.OutputMax)
		safety := thermal.NewSafetyMonitor(rc.SafetyLimits.MinTempK, rc.SafetyLimits.MaxTempK, 10*time.Second)

		reg := thermal.NewRegulator(rc.ID, pid, bridge, sensor, safety, thermal.Limits{
			MaxHeatDuty: rc.SafetyLimits.MaxHeatDuty,
			MaxCoolDuty: rc.SafetyLimits.MaxCoolDuty,
			Epsilon:     0.5,
		}, logger)
		reg.SetSetpoint(rc.PIDParams.Setpoint)

		fleet[rc.ID] = reg

		samplingHz := rc.ControlParams.SamplingHz
		if samplingHz <= 0 {
			samplingHz = 1
		}
		go runRegulatorLoop(ctx, reg, time.Duration(float64(time.Second)/samplingHz))
	}

	return fleet, nil
}

// runAuditFlushLoop periodically copies any action.History entries newer
// than the last flush into the durable audit store. A best-effort cursor
// on entry timestamp is enough here: the in-memory ring buffer is the
// system of record for the live API, this loop only extends its
// retention, so an occasional missed or duplicated entry around a flush
// boundary is tolerable.
func runAuditFlushLoop(ctx context.Context, history *action.History, store *pgaudit.Store, interval time.Duration) {
	var lastTS time.Time
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			entries := history.Recent(0)
			fresh := make([]action.HistoryEntry, 0, len(entries))
			for _, e := range entries {
				if e.Timestamp.After(lastTS) {
					fresh = append(fresh, e)
				}
			}
			if len(fresh) == 0 {
				continue
			}
			if err := store.RecordBatch(fresh); err != nil {
				slog.Warn("action history audit flush failed", "error", err)
				continue
			}
			lastTS = fresh[len(fresh)-1].Timestamp
		case <-ctx.Done():
			return
		}
	}
}

func runRegulatorLoop(ctx context.Context, reg *thermal.Regulator, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := reg.Tick(period); err != nil {
				slog.Warn("thermal regulator tick error", "regulator", reg.Status().ID, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// buildOAuthServer assembles the OAuth2/OIDC authorization server from
// the configured client/user registries and signing material.
func buildOAuthServer(cfg *config.Config, logger *slog.Logger) (*oauth.Server, error) {
	hmacSecret, err := cfg.OAuthHMACSecretBytes()
	if err != nil {
		return nil, err
	}

	issuer := oauth.NewIssuer(cfg.Document.OAuth.Issuer, hmacSecret, cfg.OAuthAccessTokenTTL())

	rsaPriv, rsaPub, err := cfg.RS256KeyPair()
	if err != nil {
		return nil, err
	}
	if rsaPriv != nil {
		issuer = issuer.WithRS256(rsaPriv, rsaPub, cfg.Document.OAuth.RS256KeyID)
	}

	clients := oauth.NewClientStore()
	for _, c := range cfg.Document.OAuth.Clients {
		clients.Register(oauth.Client{
			ID:            c.ID,
			RedirectURIs:  c.RedirectURIs,
			DefaultScope:  c.DefaultScope,
			AllowedGrants: c.AllowedGrants,
		})
	}

	users := oauth.NewUserStore()
	for _, u := range cfg.Document.OAuth.Users {
		hash, err := decodeCryptHash(u.PassBase64)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		users.Put(oauth.User{
			Username:    u.Username,
			CryptHash:   hash,
			Permissions: u.Permissions,
			DisplayName: u.DisplayName,
		})
	}

	grants := oauth.NewGrantStore()
	sessions := oauth.NewSessionStore(10 * time.Minute)

	baseURL := cfg.Document.OAuth.Issuer
	return oauth.NewServer(clients, users, grants, sessions, issuer, baseURL, logger), nil
}

func decodeCryptHash(passBase64 string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(passBase64)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// runTuningMode drives the named regulator's mock plant with an open-loop
// heater step and derives PID gains from the resulting reaction curve,
// printing them instead of starting the daemon. It never touches a
// configured safety monitor or PID controller — the bridge is driven
// directly so the step input is exactly what the plant sees.
func runTuningMode(cfg *config.Config, logger *slog.Logger) error {
	var rc *config.ThermalRegulatorConfig
	for i := range cfg.Document.Thermal {
		if cfg.Document.Thermal[i].ID == cfg.TuneRegulatorID {
			rc = &cfg.Document.Thermal[i]
			break
		}
	}
	if rc == nil {
		return fmt.Errorf("no thermal regulator named %q in the configuration document", cfg.TuneRegulatorID)
	}

	bus := i2c.NewMock()
	gpioAddr := rc.ActuatorConfig.GPIOAddress
	if gpioAddr == 0 {
		gpioAddr = rc.ActuatorConfig.Address
	}
	bus.AddGPIOController(gpioAddr, 0, 1)
	bus.AddPWMController(rc.ActuatorConfig.Address)

	gpio := i2c.NewGPIOController(bus, gpioAddr)
	direction := thermal.NewHBridgeDirectionPins(gpio, 0, 1)
	pwm := i2c.NewPWMController(bus, rc.ActuatorConfig.Address, byte(rc.ActuatorConfig.PWMChannel))
	bridge := thermal.NewHBridge(direction, pwm)

	const (
		sampleInterval = time.Second
		settleSamples  = 300 // 5 minutes, long enough to approach steady state at tau=90s
		stepDutyPct    = 50.0
	)

	plant := bus.Plant()
	baseline := plant.Temperature()

	if err := bridge.SetDirection(thermal.DirectionForward); err != nil {
		return fmt.Errorf("applying step input: %w", err)
	}
	if err := bridge.SetDuty(stepDutyPct); err != nil {
		return fmt.Errorf("applying step input: %w", err)
	}

	type sample struct {
		t time.Duration
		c float64
	}
	samples := make([]sample, 0, settleSamples)
	for i := 1; i <= settleSamples; i++ {
		plant.AdvanceBy(sampleInterval)
		samples = append(samples, sample{t: time.Duration(i) * sampleInterval, c: plant.Temperature()})
	}

	final := samples[len(samples)-1].c
	totalRise := final - baseline
	if totalRise <= 0 {
		return fmt.Errorf("step response produced no measurable temperature rise")
	}

	deadTime := time.Duration(0)
	deadTimeThreshold := baseline + 0.05*totalRise
	for _, s := range samples {
		if s.c >= deadTimeThreshold {
			deadTime = s.t
			break
		}
	}

	timeConst := time.Duration(0)
	sixtyThreePct := baseline + 0.632*totalRise
	for _, s := range samples {
		if s.c >= sixtyThreePct {
			timeConst = s.t - deadTime
			break
		}
	}
	if timeConst <= 0 {
		return fmt.Errorf("step response did not reach 63%% of its final value within the settling window")
	}

	response := tuning.StepResponse{
		DeltaInput:  stepDutyPct,
		DeltaOutput: totalRise,
		DeadTimeS:   deadTime.Seconds(),
		TimeConstS:  timeConst.Seconds(),
	}

	var gains tuning.Gains
	var err error
	switch cfg.TuneMethod {
	case "ziegler-nichols":
		gains, err = tuning.ZieglerNichols(response)
	case "cohen-coon", "":
		gains, err = tuning.CohenCoon(response)
	default:
		return fmt.Errorf("unknown tuning method %q", cfg.TuneMethod)
	}
	if err != nil {
		return fmt.Errorf("computing gains: %w", err)
	}

	logger.Info("tuning run complete",
		"regulator", rc.ID,
		"method", cfg.TuneMethod,
		"dead_time_s", response.DeadTimeS,
		"time_const_s", response.TimeConstS,
		"dead_time_ratio", response.DeadTimeRatio(),
		"kp", gains.Kp,
		"ki", gains.Ki,
		"kd", gains.Kd,
	)
	fmt.Printf("kp: %.6f\nki: %.6f\nkd: %.6f\n", gains.Kp, gains.Ki, gains.Kd)
	return nil
}
