package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Equalizer   EqualizerConfig   `mapstructure:"equalizer"`
	Import      ImportConfig      `mapstructure:"import"`
	Spectrogram SpectrogramConfig `mapstructure:"spectrogram"`
	Presets     PresetsConfig     `mapstructure:"presets"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	v           *viper.Viper
	mu          sync.RWMutex
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	DataDir string `mapstructure:"data_dir"`
	LogDir  string `mapstructure:"log_dir"`
}

type AudioConfig struct {
	OutputDevice string        `mapstructure:"output_device"`
	SampleRate   int           `mapstructure:"sample_rate"` // device rate; signals are resampled to it
	BufferSize   int           `mapstructure:"buffer_size"` // samples held by the output queue
	ChunkSize    int           `mapstructure:"chunk_size"`  // samples per device write
	Latency      time.Duration `mapstructure:"latency"`
	Volume       float64       `mapstructure:"volume"`
}

type EqualizerConfig struct {
	Mode    string  `mapstructure:"mode"`
	Window  string  `mapstructure:"window"`
	ECGKey  string  `mapstructure:"ecg_key"`
	MaxGain float64 `mapstructure:"max_gain"` // 0 disables the cap
}

type ImportConfig struct {
	CSVSampleRate float64 `mapstructure:"csv_sample_rate"` // used when a trace has no time column
}

type SpectrogramConfig struct {
	NFFT    int `mapstructure:"nfft"`
	Overlap int `mapstructure:"overlap"`
}

type PresetsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// Get returns the process-wide configuration, loading it from the standard
// search paths on first use.
func Get() *Config {
	once.Do(func() {
		instance = New()
		if err := instance.load(""); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
	})
	return instance
}

// New returns a configuration holding only defaults.
func New() *Config {
	c := &Config{v: viper.New()}
	c.setDefaults()
	if err := c.v.Unmarshal(c); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to apply config defaults: %v\n", err)
	}
	return c
}

// Load reads configuration from an explicit file. Missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	c := New()
	if err := c.load(path); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) load(path string) error {
	c.v.SetConfigType("yaml")
	c.v.SetEnvPrefix("EQSTUDIO")
	c.v.AutomaticEnv()

	if path != "" {
		c.v.SetConfigFile(path)
	} else {
		c.v.SetConfigName("config")
		c.v.AddConfigPath(c.getUserConfigDir())
		c.v.AddConfigPath(c.getSystemConfigDir())
		c.v.AddConfigPath(".")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// No config file anywhere; run on defaults.
		return nil
	}

	if err := c.v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.v.Unmarshal(c); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reload config %s: %v\n", e.Name, err)
		}
	})
	c.v.WatchConfig()

	return nil
}

func (c *Config) setDefaults() {
	// App defaults
	c.v.SetDefault("app.name", "EqStudio")
	c.v.SetDefault("app.version", "1.0.0")
	c.v.SetDefault("app.data_dir", c.getDataDir())
	c.v.SetDefault("app.log_dir", filepath.Join(c.getDataDir(), "logs"))

	// Audio defaults
	c.v.SetDefault("audio.output_device", "default")
	c.v.SetDefault("audio.sample_rate", 44100)
	c.v.SetDefault("audio.buffer_size", 8192)
	c.v.SetDefault("audio.chunk_size", 2048)
	c.v.SetDefault("audio.latency", 50*time.Millisecond)
	c.v.SetDefault("audio.volume", 0.8)

	// Equalizer defaults
	c.v.SetDefault("equalizer.mode", "animals")
	c.v.SetDefault("equalizer.window", "rectangle")
	c.v.SetDefault("equalizer.ecg_key", "")
	c.v.SetDefault("equalizer.max_gain", 2.0)

	// Import defaults
	c.v.SetDefault("import.csv_sample_rate", 360.0)

	// Spectrogram defaults
	c.v.SetDefault("spectrogram.nfft", 256)
	c.v.SetDefault("spectrogram.overlap", 128)

	// Preset store defaults
	c.v.SetDefault("presets.enabled", true)
	c.v.SetDefault("presets.database_path", filepath.Join(c.getDataDir(), "presets.db"))

	// Logging defaults
	c.v.SetDefault("logging.level", "info")
	c.v.SetDefault("logging.file", true)
	c.v.SetDefault("logging.json", false)
}

func (c *Config) getUserConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "EqStudio")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "eqstudio")
}

func (c *Config) getSystemConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "EqStudio")
	}
	return "/etc/eqstudio"
}

func (c *Config) getDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "EqStudio")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "eqstudio")
}

// Validate checks values the engine and the player depend on.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio: sample_rate %d must be positive", c.Audio.SampleRate)
	}
	if c.Audio.ChunkSize <= 0 || c.Audio.BufferSize < c.Audio.ChunkSize {
		return fmt.Errorf("audio: chunk_size %d must be positive and fit buffer_size %d", c.Audio.ChunkSize, c.Audio.BufferSize)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio: volume %v must be between 0 and 1", c.Audio.Volume)
	}
	if c.Equalizer.MaxGain < 0 {
		return fmt.Errorf("equalizer: max_gain %v must not be negative", c.Equalizer.MaxGain)
	}
	if c.Import.CSVSampleRate <= 0 {
		return fmt.Errorf("import: csv_sample_rate %v must be positive", c.Import.CSVSampleRate)
	}
	if c.Spectrogram.NFFT < 2 || c.Spectrogram.Overlap < 0 || c.Spectrogram.Overlap >= c.Spectrogram.NFFT {
		return fmt.Errorf("spectrogram: nfft %d / overlap %d out of range", c.Spectrogram.NFFT, c.Spectrogram.Overlap)
	}
	return nil
}

// SaveAs writes the current configuration to path.
func (c *Config) SaveAs(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return c.v.WriteConfigAs(path)
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.WriteConfig()
}

func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.v.ReadInConfig(); err != nil {
		return err
	}
	return c.v.Unmarshal(c)
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}

func (c *Config) GetFloat64(key string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetFloat64(key)
}

func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetDuration(key)
}

// Set stores a value and refreshes the typed fields.
func (c *Config) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
	if err := c.v.Unmarshal(c); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to apply %s: %v\n", key, err)
	}
}
