package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ListenConfig struct {
	SocketPath string `yaml:"socket_path"`
	// WorldAccessible relaxes the socket mode so reduced-privilege callers
	// can connect, the role the original endpoint ACL played.
	WorldAccessible bool `yaml:"world_accessible"`
}

type EngineConfig struct {
	Mode           string `yaml:"mode"` // mock, exec
	Command        string `yaml:"command"`
	ModelPath      string `yaml:"model_path"`
	Device         string `yaml:"device"`
	InferenceSteps int    `yaml:"inference_steps"`
	SampleRate     int    `yaml:"sample_rate"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRows       int    `yaml:"max_rows"`
}

type CaptureConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	Listen      ListenConfig    `yaml:"listen"`
	Engine      EngineConfig    `yaml:"engine"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	History     HistoryConfig   `yaml:"history"`
	Capture     CaptureConfig   `yaml:"capture"`
}

func Default() Config {
	return Config{
		ServiceName: "voxpipe",
		Environment: "development",
		Listen: ListenConfig{
			SocketPath:      "/tmp/voxpipe.sock",
			WorldAccessible: true,
		},
		Engine: EngineConfig{
			Mode:           "mock",
			ModelPath:      "microsoft/VibeVoice-Realtime-0.5B",
			Device:         "cuda",
			InferenceSteps: 5,
			SampleRate:     24000,
		},
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8722,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		History: HistoryConfig{
			Enabled:       false,
			Path:          "./data/voxpipe-history.db",
			RetentionDays: 30,
			MaxRows:       100000,
		},
		Capture: CaptureConfig{
			Enabled:   false,
			Directory: "./data/capture",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "VOXPIPE_SERVICE_NAME")
	overrideString(&cfg.Environment, "VOXPIPE_ENVIRONMENT")
	overrideString(&cfg.Listen.SocketPath, "VOXPIPE_LISTEN_SOCKET_PATH")
	overrideBool(&cfg.Listen.WorldAccessible, "VOXPIPE_LISTEN_WORLD_ACCESSIBLE")
	overrideString(&cfg.Engine.Mode, "VOXPIPE_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "VOXPIPE_ENGINE_COMMAND")
	overrideString(&cfg.Engine.ModelPath, "VOXPIPE_ENGINE_MODEL_PATH")
	overrideString(&cfg.Engine.Device, "VOXPIPE_ENGINE_DEVICE")
	overrideInt(&cfg.Engine.InferenceSteps, "VOXPIPE_ENGINE_INFERENCE_STEPS")
	overrideInt(&cfg.Engine.SampleRate, "VOXPIPE_ENGINE_SAMPLE_RATE")
	overrideString(&cfg.HTTP.Bind, "VOXPIPE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOXPIPE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOXPIPE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOXPIPE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOXPIPE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "VOXPIPE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VOXPIPE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOXPIPE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOXPIPE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOXPIPE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOXPIPE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOXPIPE_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOXPIPE_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.History.Enabled, "VOXPIPE_HISTORY_ENABLED")
	overrideString(&cfg.History.Path, "VOXPIPE_HISTORY_PATH")
	overrideInt(&cfg.History.RetentionDays, "VOXPIPE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxRows, "VOXPIPE_HISTORY_MAX_ROWS")
	overrideBool(&cfg.Capture.Enabled, "VOXPIPE_CAPTURE_ENABLED")
	overrideString(&cfg.Capture.Directory, "VOXPIPE_CAPTURE_DIRECTORY")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.Listen.SocketPath == "" {
		return errors.New("listen.socket_path must not be empty")
	}
	switch cfg.Engine.Mode {
	case "mock", "exec":
	default:
		return errors.New("engine.mode must be one of mock|exec")
	}
	if cfg.Engine.Mode == "exec" && cfg.Engine.Command == "" {
		return errors.New("engine.command must be set when mode=exec")
	}
	if cfg.Engine.SampleRate <= 0 {
		return errors.New("engine.sample_rate must be positive")
	}
	if cfg.Engine.InferenceSteps <= 0 {
		return errors.New("engine.inference_steps must be positive")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			return errors.New("history.path must not be empty when history is enabled")
		}
		if cfg.History.RetentionDays < 0 {
			return errors.New("history.retention_days must be >= 0")
		}
		if cfg.History.MaxRows < 0 {
			return errors.New("history.max_rows must be >= 0")
		}
	}
	if cfg.Capture.Enabled && cfg.Capture.Directory == "" {
		return errors.New("capture.directory must not be empty when capture is enabled")
	}
	return nil
}
