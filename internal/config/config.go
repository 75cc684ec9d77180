// Package config loads the service configuration from YAML with
// STARSEEKER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/star/starseeker/internal/mount"
	"github.com/star/starseeker/internal/sky"
)

// HTTPConfig configures the API listener. AuthReadToken grants only
// read routes; MaxVoicePerIP bounds concurrent interpret and voice requests
// per client.
type HTTPConfig struct {
	Addr          string `yaml:"addr"`
	AuthEnabled   bool   `yaml:"auth_enabled"`
	AuthToken     string `yaml:"auth_token"`
	AuthReadToken string `yaml:"auth_read_token"`
	TrustProxy    bool   `yaml:"trust_proxy"`
	MaxVoicePerIP int    `yaml:"max_voice_per_ip"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text, tint
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type TelemetryConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled"`
	Exporter       string  `yaml:"exporter"` // stdout, otlp
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	OTLPInsecure   bool    `yaml:"otlp_insecure"`
	SampleRatio    float64 `yaml:"sample_ratio"`
}

// MountConfig holds the remap law and an optional calibration file that
// overrides it and is watched for changes.
type MountConfig struct {
	ForwardAzimuth  float64 `yaml:"forward_azimuth"`
	HalfWidth       float64 `yaml:"half_width"`
	MirrorFar       bool    `yaml:"mirror_far"`
	Reverse         bool    `yaml:"reverse"`
	CalibrationFile string  `yaml:"calibration_file"`
}

// Law returns the remap law described by the config.
func (m MountConfig) Law() mount.Law {
	return mount.Law{
		ForwardDeg:   m.ForwardAzimuth,
		HalfWidthDeg: m.HalfWidth,
		MirrorFar:    m.MirrorFar,
		Reverse:      m.Reverse,
	}
}

// CatalogConfig selects the star catalog. A path wins; otherwise the full
// Hipparcos catalog is downloaded from URL into CacheDir once. With no path
// and no URL only the embedded bright-star subset is used.
type CatalogConfig struct {
	Path           string `yaml:"path"`
	URL            string `yaml:"url"`
	CacheDir       string `yaml:"cache_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SatellitesConfig struct {
	SourceURL          string   `yaml:"source_url"`
	Group              string   `yaml:"group"`
	ExtraURLs          []string `yaml:"extra_urls"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`
	Retries            int      `yaml:"retries"`
	CacheDir           string   `yaml:"cache_dir"`
	MaxFiles           int      `yaml:"max_files"`
	CacheFallback      bool     `yaml:"cache_fallback"`
	CacheMaxAgeSeconds int      `yaml:"cache_max_age_seconds"`
}

// Timeout returns the bound on one live satellite fetch.
func (s SatellitesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type TransmitConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

type STTConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

type LLMConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Endpoint       string  `yaml:"endpoint"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type TTSConfig struct {
	Mode    string `yaml:"mode"` // none, log, exec
	Command string `yaml:"command"`
}

type BusConfig struct {
	Servers        []string `yaml:"servers"`
	Subject        string   `yaml:"subject"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
}

type VoiceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	InboxDir       string `yaml:"inbox_dir"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	Transmit       bool   `yaml:"transmit"`
}

type Config struct {
	ServiceName string           `yaml:"service_name"`
	HTTP        HTTPConfig       `yaml:"http"`
	Log         LogConfig        `yaml:"log"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Observer    sky.Location     `yaml:"observer"`
	Mount       MountConfig      `yaml:"mount"`
	Catalog     CatalogConfig    `yaml:"catalog"`
	Satellites  SatellitesConfig `yaml:"satellites"`
	Transmit    TransmitConfig   `yaml:"transmit"`
	STT         STTConfig        `yaml:"stt"`
	LLM         LLMConfig        `yaml:"llm"`
	TTS         TTSConfig        `yaml:"tts"`
	Bus         BusConfig        `yaml:"bus"`
	Journal     JournalConfig    `yaml:"journal"`
	Voice       VoiceConfig      `yaml:"voice"`
}

func Default() Config {
	law := mount.DefaultLaw()
	return Config{
		ServiceName: "starseeker",
		HTTP: HTTPConfig{
			Addr:          ":8080",
			MaxVoicePerIP: 2,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			OTLPInsecure: true,
			SampleRatio:  1.0,
		},
		Observer: sky.Location{LatDeg: 52.4109568, LonDeg: 12.5382680, HeightM: 36},
		Mount: MountConfig{
			ForwardAzimuth: law.ForwardDeg,
			HalfWidth:      law.HalfWidthDeg,
			MirrorFar:      law.MirrorFar,
			Reverse:        law.Reverse,
		},
		Catalog: CatalogConfig{
			URL:            "https://cdsarc.cds.unistra.fr/ftp/cats/I/239/hip_main.dat",
			CacheDir:       "/tmp/starseeker/catalog",
			TimeoutSeconds: 120,
			Retries:        2,
		},
		Satellites: SatellitesConfig{
			Group:              "stations",
			TimeoutSeconds:     10,
			Retries:            2,
			CacheDir:           "/tmp/starseeker/tle",
			MaxFiles:           5,
			CacheMaxAgeSeconds: 86400,
		},
		Transmit: TransmitConfig{
			TimeoutSeconds: 5,
			Retries:        1,
		},
		STT: STTConfig{
			Endpoint:       "http://localhost:8000",
			Model:          "whisper-1",
			TimeoutSeconds: 120,
			Retries:        2,
		},
		LLM: LLMConfig{
			Endpoint:       "http://localhost:18080",
			Model:          "llama3.2",
			TimeoutSeconds: 120,
		},
		TTS: TTSConfig{
			Mode: "log",
		},
		Bus: BusConfig{
			Subject:        "starseeker.pointing",
			ConnectTimeout: 2000,
		},
		Journal: JournalConfig{
			Path:          "./data/starseeker-journal.db",
			RetentionDays: 30,
			MaxEntries:    10000,
		},
		Voice: VoiceConfig{
			InboxDir:       "./data/inbox",
			PollIntervalMS: 500,
			Transmit:       true,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
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
	overrideString(&cfg.ServiceName, "STARSEEKER_SERVICE_NAME")
	overrideString(&cfg.HTTP.Addr, "STARSEEKER_HTTP_ADDR")
	overrideBool(&cfg.HTTP.AuthEnabled, "STARSEEKER_AUTH_ENABLED")
	overrideString(&cfg.HTTP.AuthToken, "STARSEEKER_AUTH_TOKEN")
	overrideString(&cfg.HTTP.AuthReadToken, "STARSEEKER_AUTH_READ_TOKEN")
	overrideBool(&cfg.HTTP.TrustProxy, "STARSEEKER_TRUST_PROXY")
	overrideInt(&cfg.HTTP.MaxVoicePerIP, "STARSEEKER_MAX_VOICE_PER_IP")
	overrideString(&cfg.Log.Level, "STARSEEKER_LOG_LEVEL")
	overrideString(&cfg.Log.Format, "STARSEEKER_LOG_FORMAT")
	overrideString(&cfg.Log.File, "STARSEEKER_LOG_FILE")
	overrideBool(&cfg.Telemetry.TracingEnabled, "STARSEEKER_TRACING_ENABLED")
	overrideString(&cfg.Telemetry.Exporter, "STARSEEKER_TRACING_EXPORTER")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "STARSEEKER_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "STARSEEKER_OTLP_INSECURE")
	overrideFloat(&cfg.Telemetry.SampleRatio, "STARSEEKER_TRACING_SAMPLE_RATIO")
	overrideFloat(&cfg.Observer.LatDeg, "STARSEEKER_OBSERVER_LAT")
	overrideFloat(&cfg.Observer.LonDeg, "STARSEEKER_OBSERVER_LON")
	overrideFloat(&cfg.Observer.HeightM, "STARSEEKER_OBSERVER_HEIGHT")
	overrideFloat(&cfg.Mount.ForwardAzimuth, "STARSEEKER_MOUNT_FORWARD_AZIMUTH")
	overrideFloat(&cfg.Mount.HalfWidth, "STARSEEKER_MOUNT_HALF_WIDTH")
	overrideBool(&cfg.Mount.MirrorFar, "STARSEEKER_MOUNT_MIRROR_FAR")
	overrideBool(&cfg.Mount.Reverse, "STARSEEKER_MOUNT_REVERSE")
	overrideString(&cfg.Mount.CalibrationFile, "STARSEEKER_MOUNT_CALIBRATION_FILE")
	overrideString(&cfg.Catalog.Path, "STARSEEKER_CATALOG_PATH")
	overrideString(&cfg.Catalog.URL, "STARSEEKER_CATALOG_URL")
	overrideString(&cfg.Catalog.CacheDir, "STARSEEKER_CATALOG_CACHE_DIR")
	overrideString(&cfg.Satellites.SourceURL, "STARSEEKER_TLE_SOURCE_URL")
	overrideString(&cfg.Satellites.Group, "STARSEEKER_TLE_GROUP")
	overrideStringSlice(&cfg.Satellites.ExtraURLs, "STARSEEKER_TLE_EXTRA_URLS")
	overrideInt(&cfg.Satellites.TimeoutSeconds, "STARSEEKER_TLE_TIMEOUT")
	overrideInt(&cfg.Satellites.Retries, "STARSEEKER_TLE_RETRIES")
	overrideString(&cfg.Satellites.CacheDir, "STARSEEKER_TLE_CACHE_DIR")
	overrideBool(&cfg.Satellites.CacheFallback, "STARSEEKER_TLE_CACHE_FALLBACK")
	overrideInt(&cfg.Satellites.CacheMaxAgeSeconds, "STARSEEKER_TLE_MAX_AGE")
	overrideBool(&cfg.Transmit.Enabled, "STARSEEKER_TRANSMIT_ENABLED")
	overrideString(&cfg.Transmit.BaseURL, "STARSEEKER_TRANSMIT_URL")
	overrideBool(&cfg.STT.Enabled, "STARSEEKER_STT_ENABLED")
	overrideString(&cfg.STT.Endpoint, "STARSEEKER_STT_ENDPOINT")
	overrideString(&cfg.STT.APIKey, "STARSEEKER_STT_API_KEY")
	overrideString(&cfg.STT.Language, "STARSEEKER_STT_LANGUAGE")
	overrideBool(&cfg.LLM.Enabled, "STARSEEKER_LLM_ENABLED")
	overrideString(&cfg.LLM.Endpoint, "STARSEEKER_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "STARSEEKER_LLM_MODEL")
	overrideString(&cfg.TTS.Mode, "STARSEEKER_TTS_MODE")
	overrideString(&cfg.TTS.Command, "STARSEEKER_TTS_COMMAND")
	overrideStringSlice(&cfg.Bus.Servers, "STARSEEKER_BUS_SERVERS")
	overrideString(&cfg.Bus.Subject, "STARSEEKER_BUS_SUBJECT")
	overrideString(&cfg.Bus.Token, "STARSEEKER_BUS_TOKEN")
	overrideBool(&cfg.Journal.Enabled, "STARSEEKER_JOURNAL_ENABLED")
	overrideString(&cfg.Journal.Path, "STARSEEKER_JOURNAL_PATH")
	overrideInt(&cfg.Journal.RetentionDays, "STARSEEKER_JOURNAL_RETENTION_DAYS")
	overrideBool(&cfg.Voice.Enabled, "STARSEEKER_VOICE_ENABLED")
	overrideString(&cfg.Voice.InboxDir, "STARSEEKER_VOICE_INBOX")
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

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
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
	if cfg.HTTP.Addr == "" {
		return errors.New("http.addr must not be empty")
	}
	if cfg.HTTP.AuthEnabled && cfg.HTTP.AuthToken == "" {
		return errors.New("http.auth_token is required when auth is enabled")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug|info|warn|error")
	}
	switch cfg.Log.Format {
	case "json", "text", "tint":
	default:
		return errors.New("log.format must be one of json|text|tint")
	}
	if cfg.Telemetry.TracingEnabled {
		switch cfg.Telemetry.Exporter {
		case "stdout":
		case "otlp":
			if cfg.Telemetry.OTLPEndpoint == "" {
				return errors.New("telemetry.otlp_endpoint must be set when exporter=otlp")
			}
		default:
			return errors.New("telemetry.exporter must be one of stdout|otlp")
		}
		if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
			return errors.New("telemetry.sample_ratio must be within [0,1]")
		}
	}
	if err := cfg.Observer.Validate(); err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	if err := cfg.Mount.Law().Validate(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if cfg.Catalog.Path == "" && cfg.Catalog.URL != "" {
		if cfg.Catalog.TimeoutSeconds <= 0 {
			return errors.New("catalog.timeout_seconds must be positive")
		}
		if cfg.Catalog.Retries < 0 {
			return errors.New("catalog.retries must be >= 0")
		}
	}
	if cfg.Satellites.TimeoutSeconds <= 0 {
		return errors.New("satellites.timeout_seconds must be positive")
	}
	if cfg.Satellites.Retries < 0 {
		return errors.New("satellites.retries must be >= 0")
	}
	if cfg.Satellites.CacheFallback && cfg.Satellites.CacheDir == "" {
		return errors.New("satellites.cache_dir must be set when cache_fallback is enabled")
	}
	if cfg.Transmit.Enabled {
		if cfg.Transmit.BaseURL == "" {
			return errors.New("transmit.base_url must be set when transmit is enabled")
		}
		if cfg.Transmit.TimeoutSeconds <= 0 {
			return errors.New("transmit.timeout_seconds must be positive")
		}
	}
	if cfg.STT.Enabled && cfg.STT.Endpoint == "" {
		return errors.New("stt.endpoint must be set when stt is enabled")
	}
	if cfg.LLM.Enabled && (cfg.LLM.Endpoint == "" || cfg.LLM.Model == "") {
		return errors.New("llm.endpoint and llm.model must be set when llm is enabled")
	}
	switch cfg.TTS.Mode {
	case "none", "log":
	case "exec":
		if cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when mode=exec")
		}
	default:
		return errors.New("tts.mode must be one of none|log|exec")
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return errors.New("journal.path must not be empty when the journal is enabled")
	}
	if cfg.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be >= 0")
	}
	if cfg.Voice.Enabled {
		if !cfg.STT.Enabled || !cfg.LLM.Enabled {
			return errors.New("voice requires stt and llm to be enabled")
		}
		if cfg.Voice.InboxDir == "" {
			return errors.New("voice.inbox_dir must be set when voice is enabled")
		}
		if cfg.Voice.PollIntervalMS <= 0 {
			return errors.New("voice.poll_interval_ms must be positive")
		}
	}
	return nil
}
