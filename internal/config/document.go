package config

import "time"

// Document is the hierarchical YAML document the daemon loads at startup.
// It carries everything that cannot be expressed as a flat CLI flag: the
// processing graph topology, the thermal regulator fleet, the OAuth client
// and user registries, and the action-driver credentials. Flat ambient
// settings (listen address, log level/format, data directory) live on
// Config itself and can additionally be overridden by flag or env var.
type Document struct {
	Acquisition   AcquisitionConfig        `yaml:"acquisition"`
	Visualization VisualizationConfig      `yaml:"visualization"`
	Modbus        ModbusConfig             `yaml:"modbus"`
	Graph         GraphConfig              `yaml:"graph"`
	Thermal       []ThermalRegulatorConfig `yaml:"thermal_regulators"`
	OAuth         OAuthConfig              `yaml:"oauth"`
	Drivers       DriverConfig             `yaml:"action_drivers"`
	Audit         AuditConfig              `yaml:"audit"`
}

// AuditConfig configures an optional durable sink for action history
// entries, supplementing the in-memory ring buffer the API serves from.
// Left zero-valued, no durable audit trail is kept.
type AuditConfig struct {
	PostgresDSN   string        `yaml:"postgres_dsn"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// AcquisitionConfig selects and parameterizes the audio source
// wired up at startup (spec §4.2: device, file, mock, or simulated).
// Only the sub-struct matching Kind is consulted; the others may be
// left zero-valued in the document.
type AcquisitionConfig struct {
	Kind       string                    `yaml:"kind"` // "device", "file", "mock", or "simulated"
	FrameSize  int                       `yaml:"frame_size"`
	SampleRate uint32                    `yaml:"sample_rate_hz"`
	File       FileSourceConfig          `yaml:"file"`
	Mock       MockSourceConfig          `yaml:"mock"`
	Simulated  SimulatedSourceConfig     `yaml:"simulated"`
}

type FileSourceConfig struct {
	Path string `yaml:"path"`
}

type MockSourceConfig struct {
	Correlation float32 `yaml:"correlation"`
	Amplitude   float32 `yaml:"amplitude"`
	RealTime    bool    `yaml:"real_time"`
}

// SimulatedSourceConfig mirrors acquisition.SimulatedSourceConfig's
// physical parameters (SampleRate/FrameSize come from the enclosing
// AcquisitionConfig instead, since every source kind shares them).
type SimulatedSourceConfig struct {
	BackgroundNoiseAmplitude float32 `yaml:"background_noise_amplitude"`
	ResonanceFrequency       float32 `yaml:"resonance_frequency_hz"`
	LaserModulationDepth     float32 `yaml:"laser_modulation_depth"`
	SignalAmplitude          float32 `yaml:"signal_amplitude"`
	PhaseOppositionDegrees   float32 `yaml:"phase_opposition_degrees"`
	TemperatureDriftFactor   float32 `yaml:"temperature_drift_factor"`
	GasFlowNoiseFactor       float32 `yaml:"gas_flow_noise_factor"`
	SNRFactorDB              float32 `yaml:"snr_factor_db"`
	ModulationMode           string  `yaml:"modulation_mode"` // "amplitude" or "pulsed"
	PulseWidthSeconds        float32 `yaml:"pulse_width_seconds"`
	PulseFrequencyHz         float32 `yaml:"pulse_frequency_hz"`
	RealTime                 bool    `yaml:"real_time"`
}

// VisualizationConfig is the teacher's name (carried over from the original
// implementation's configuration vocabulary) for the HTTP surface that
// serves both the OAuth2/OIDC authorization server and the data-plane API.
type VisualizationConfig struct {
	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	CertBase64  string `yaml:"cert_base64"`
	KeyBase64   string `yaml:"key_base64"`
	CORSOrigins string `yaml:"cors_origins"`
}

// ModbusConfig configures the read-only Modbus/TCP register server (spec §4.8).
type ModbusConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// GraphConfig points at the processing graph topology definition consumed
// by internal/graph at startup.
type GraphConfig struct {
	DefinitionPath string `yaml:"definition_path"`
}

// ThermalRegulatorConfig mirrors the ThermalRegulator data model of spec §3,
// as it appears in the configuration document rather than in runtime state.
type ThermalRegulatorConfig struct {
	ID                string              `yaml:"id"`
	Enabled           bool                `yaml:"enabled"`
	SensorConfig      SensorConfig        `yaml:"sensor_config"`
	ActuatorConfig    ActuatorConfig      `yaml:"actuator_config"`
	ConversionFormula string              `yaml:"temperature_conversion_formula"`
	PIDParams         PIDParamsConfig     `yaml:"pid_params"`
	ControlParams     ControlParamsConfig `yaml:"control_params"`
	SafetyLimits      SafetyLimitsConfig  `yaml:"safety_limits"`
}

type SensorConfig struct {
	Kind    string `yaml:"kind"` // "temp_sensor" or "adc_thermistor"
	Address byte   `yaml:"address"`
	VrefV   float64 `yaml:"vref_v"`
}

// ActuatorConfig describes the H-bridge driving one thermal zone: a GPIO
// expander for direction and a PWM controller for duty cycle, which may
// live at the same or different I2C addresses depending on the board.
type ActuatorConfig struct {
	Kind         string `yaml:"kind"` // "pwm" or "gpio"
	Address      byte   `yaml:"address"`
	GPIOAddress  byte   `yaml:"gpio_address"` // defaults to Address when zero
	PWMChannel   int    `yaml:"pwm_channel"`
}

type PIDParamsConfig struct {
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	Setpoint   float64 `yaml:"setpoint"`
	OutputMin  float64 `yaml:"output_min"`
	OutputMax  float64 `yaml:"output_max"`
	IntegralMax float64 `yaml:"integral_max"`
}

type ControlParamsConfig struct {
	SamplingHz float64 `yaml:"sampling_hz"`
	PWMHz      float64 `yaml:"pwm_hz"`
}

type SafetyLimitsConfig struct {
	MinTempK    float64 `yaml:"min_temp_k"`
	MaxTempK    float64 `yaml:"max_temp_k"`
	MaxHeatDuty float64 `yaml:"max_heat_duty"`
	MaxCoolDuty float64 `yaml:"max_cool_duty"`
}

// OAuthConfig describes the authorization server's signing material,
// registered clients, and local user directory.
type OAuthConfig struct {
	Issuer             string         `yaml:"issuer"`
	HMACSecretBase64   string         `yaml:"hmac_secret_base64"`
	RS256PrivateBase64 string         `yaml:"rs256_private_key_base64"`
	RS256PublicBase64  string         `yaml:"rs256_public_key_base64"`
	RS256KeyID         string         `yaml:"rs256_key_id"`
	AccessTokenTTL     string         `yaml:"access_token_ttl"` // time.ParseDuration syntax
	Clients            []ClientConfig `yaml:"clients"`
	Users              []UserConfig   `yaml:"users"`
}

type ClientConfig struct {
	ID            string   `yaml:"id"`
	RedirectURIs  []string `yaml:"redirect_uris"`
	DefaultScope  string   `yaml:"default_scope"`
	AllowedGrants []string `yaml:"allowed_grants"`
}

// UserConfig carries the crypt-style password hash base64-encoded in the
// document, per spec §6 ("Every user's `pass` is base64-decoded to a crypt
// hash prefixed by $1$, $5$, $6$, or $apr1$").
type UserConfig struct {
	Username    string   `yaml:"username"`
	PassBase64  string   `yaml:"pass_base64"`
	Permissions []string `yaml:"permissions"`
	DisplayName string   `yaml:"display_name"`
}

// DriverConfig groups the credentials each ActionDriver implementation
// needs (spec §4.6, plus the push driver supplement of SPEC_FULL §2).
type DriverConfig struct {
	HTTP  *HTTPDriverConfig  `yaml:"http,omitempty"`
	Redis *RedisDriverConfig `yaml:"redis,omitempty"`
	Kafka *KafkaDriverConfig `yaml:"kafka,omitempty"`
	Push  *PushDriverConfig  `yaml:"push,omitempty"`
}

type HTTPDriverConfig struct {
	URL             string `yaml:"url"`
	BearerToken     string `yaml:"bearer_token"`
	DigestUsername  string `yaml:"digest_username"`
	DigestPassword  string `yaml:"digest_password"`
}

type RedisDriverConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type KafkaDriverConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PushDriverConfig configures the Firebase Cloud Messaging action driver
// (SPEC_FULL §2 component L), grounded on firebase.google.com/go/v4.
type PushDriverConfig struct {
	ServiceAccountJSONPath string `yaml:"service_account_json_path"`
	Topic                  string `yaml:"topic"`
}
