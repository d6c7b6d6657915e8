// Package config loads foodtrack settings from defaults, a TOML file, a .env
// file and FOODTRACK_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vango-go/foodtrack/internal/dotenv"
	"github.com/vango-go/foodtrack/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// FOODTRACK_BACKEND_BASE_URL for backend.base_url.
const EnvPrefix = "FOODTRACK_"

// TTS provider names.
const (
	TTSBackend    = "backend"
	TTSElevenLabs = "elevenlabs"
)

// Config is the resolved configuration.
type Config struct {
	Backend struct {
		BaseURL           string        `koanf:"base_url"`
		Timeout           time.Duration `koanf:"timeout"`
		RequestsPerSecond float64       `koanf:"requests_per_second"`
	} `koanf:"backend"`

	Session struct {
		Path string `koanf:"path"`
	} `koanf:"session"`

	Voice struct {
		TTSProvider       string `koanf:"tts_provider"`
		ElevenLabsAPIKey  string `koanf:"elevenlabs_api_key"`
		ElevenLabsVoiceID string `koanf:"elevenlabs_voice_id"`
		// MicInput streams the microphone to the remote agent.
		MicInput bool `koanf:"mic_input"`
		// MicDevice overrides the platform capture device.
		MicDevice     string `koanf:"mic_device"`
		SpeakerOutput bool   `koanf:"speaker_output"`
	} `koanf:"voice"`

	Fallback struct {
		RecognizerCommand string        `koanf:"recognizer_command"`
		Model             string        `koanf:"model"`
		Language          string        `koanf:"language"`
		MaxDuration       time.Duration `koanf:"max_duration"`
		AutoSubmit        bool          `koanf:"auto_submit"`
	} `koanf:"fallback"`

	Playback struct {
		PlayerCommand string `koanf:"player_command"`
	} `koanf:"playback"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"backend.base_url":            "http://localhost:4000",
		"backend.timeout":             "60s",
		"backend.requests_per_second": 0,
		"session.path":                defaultSessionPath(),
		"voice.tts_provider":          TTSBackend,
		"voice.mic_input":             true,
		"voice.mic_device":            "",
		"voice.speaker_output":        true,
		"fallback.recognizer_command": "whisper-cli",
		"fallback.language":           "en-US",
		"fallback.max_duration":       "7s",
		"fallback.auto_submit":        true,
		"playback.player_command":     "ffplay",
		"log.level":                   "info",
		"log.format":                  "console",
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "foodtrack", "session.json")
}

// DefaultPaths are searched when Load is given no explicit path.
var DefaultPaths = []string{"./foodtrack.toml", "$HOME/.foodtrack.toml"}

// Options tune Load.
type Options struct {
	// Path is an explicit config file; it must exist.
	Path string
	// EnvFile is a dotenv file merged below real environment variables.
	// Default ".env"; a missing file is ignored.
	EnvFile string
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
	} else {
		for _, path := range DefaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
			break
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	vars, err := dotenv.Read(envFile)
	if err != nil {
		return nil, err
	}
	fromFile := make(map[string]any)
	for name, val := range dotenv.Lookup(vars, EnvPrefix) {
		fromFile[envKey(name)] = val
	}
	if err := k.Load(confmap.Provider(fromFile, "."), nil); err != nil {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Session.Path = expandHome(cfg.Session.Path)
	return &cfg, nil
}

// envKey maps FOODTRACK_VOICE_ELEVENLABS_API_KEY to
// voice.elevenlabs_api_key: the first segment names the section.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + key
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks cfg for values the client cannot run with.
func Validate(cfg *Config) error {
	var errs []error

	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an http(s) URL, got %q", cfg.Backend.BaseURL))
	}
	if cfg.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if cfg.Backend.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("backend.requests_per_second must not be negative"))
	}
	if strings.TrimSpace(cfg.Session.Path) == "" {
		errs = append(errs, errors.New("session.path is required"))
	}

	switch cfg.Voice.TTSProvider {
	case TTSBackend:
	case TTSElevenLabs:
		if cfg.Voice.ElevenLabsAPIKey == "" {
			errs = append(errs, errors.New("voice.elevenlabs_api_key is required for the elevenlabs provider"))
		}
		if cfg.Voice.ElevenLabsVoiceID == "" {
			errs = append(errs, errors.New("voice.elevenlabs_voice_id is required for the elevenlabs provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("voice.tts_provider must be %q or %q, got %q", TTSBackend, TTSElevenLabs, cfg.Voice.TTSProvider))
	}

	if cfg.Fallback.MaxDuration <= 0 || cfg.Fallback.MaxDuration > time.Minute {
		errs = append(errs, fmt.Errorf("fallback.max_duration must be in (0, 1m], got %s", cfg.Fallback.MaxDuration))
	}
	if strings.TrimSpace(cfg.Fallback.RecognizerCommand) == "" {
		errs = append(errs, errors.New("fallback.recognizer_command is required"))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", cfg.Log.Format))
	}
	return errors.Join(errs...)
}

const sampleConfig = `# foodtrack configuration

[backend]
base_url = "http://localhost:4000"
timeout = "60s"
# Outbound request budget; 0 disables limiting.
requests_per_second = 0

[session]
# path = "~/.config/foodtrack/session.json"

[voice]
# "backend" fetches speech from the backend; "elevenlabs" calls ElevenLabs directly.
tts_provider = "backend"
elevenlabs_api_key = ""
elevenlabs_voice_id = ""
# Stream the microphone to the voice agent.
mic_input = true
# Capture device; empty uses the platform default.
mic_device = ""
speaker_output = true

[fallback]
recognizer_command = "whisper-cli"
model = ""
language = "en-US"
max_duration = "7s"
# false keeps the transcript as an editable draft.
auto_submit = true

[playback]
player_command = "ffplay"

[log]
level = "info"
format = "console"
`

// InitFile writes a sample configuration to path. It refuses to overwrite.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
