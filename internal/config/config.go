package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Paths     PathConfig      `mapstructure:"paths"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Model     ModelConfig     `mapstructure:"model"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Workers   WorkerConfig    `mapstructure:"workers"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
}

type ServerConfig struct {
	ListenAddr         string   `mapstructure:"listen_addr"`
	APIKey             string   `mapstructure:"api_key"`
	MaxUploadBytes     int64    `mapstructure:"max_upload_bytes"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PathConfig struct {
	Root      string `mapstructure:"root"`
	Images    string `mapstructure:"images"`
	WordGrids string `mapstructure:"word_grids"`
	Jsons     string `mapstructure:"jsons"`
	Models    string `mapstructure:"models"`
	Xmls      string `mapstructure:"xmls"`
	Uploads   string `mapstructure:"uploads"`
	Temp      string `mapstructure:"temp"`
}

// AnnotationFile is the fixed path the dataset registrar points at.
func (p PathConfig) AnnotationFile() string {
	return filepath.Join(p.Jsons, AnnotationFileName)
}

type EmbeddingConfig struct {
	VocabSize         int    `mapstructure:"vocab_size"`
	HiddenSize        int    `mapstructure:"hidden_size"`
	EmbeddingDim      int    `mapstructure:"embedding_dim"`
	CheckpointID      string `mapstructure:"checkpoint_id"`
	CheckpointFile    string `mapstructure:"checkpoint_file"`
	VocabFile         string `mapstructure:"vocab_file"`
	UsePretrainWeight bool   `mapstructure:"use_pretrain_weight"`
	UseUNKText        bool   `mapstructure:"use_unk_text"`
	Stride            int    `mapstructure:"stride"`
	Seed              uint64 `mapstructure:"seed"`
}

type ModelConfig struct {
	Name                 string        `mapstructure:"name"`
	ConfigFile           string        `mapstructure:"config_file"`
	OutputDir            string        `mapstructure:"output_dir"`
	ServingURL           string        `mapstructure:"serving_url"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	ScoreThreshold       float64       `mapstructure:"score_threshold"`
	OverlapThreshold     float64       `mapstructure:"overlap_threshold"`
	MinSizeTest          int           `mapstructure:"min_size_test"`
	MaxSizeTest          int           `mapstructure:"max_size_test"`
	MaxRetries           uint          `mapstructure:"max_retries"`
	VGTDownloadURL       string        `mapstructure:"vgt_download_url"`
	EmbeddingDownloadURL string        `mapstructure:"embedding_download_url"`
}

type RedisConfig struct {
	Addr             string        `mapstructure:"addr"`
	Password         string        `mapstructure:"password"`
	JobDB            int           `mapstructure:"job_db"`
	ResultDB         int           `mapstructure:"result_db"`
	TTL              time.Duration `mapstructure:"ttl"`
	FallbackInMemory bool          `mapstructure:"fallback_in_memory"`
}

type WorkerConfig struct {
	Min                  int64         `mapstructure:"min"`
	Max                  int64         `mapstructure:"max"`
	RequestsPerNewWorker int64         `mapstructure:"requests_per_new_worker"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	BufferLimit          int           `mapstructure:"buffer_limit"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *Config {
	root := DefaultDataRoot
	return &Config{
		Server: ServerConfig{
			ListenAddr:         ServerListenAddr,
			MaxUploadBytes:     MaxUploadBytes,
			RateLimitPerSecond: RATE_LIMIT_PER_SECOND,
			RateLimitBurst:     BURST_RATE_LIMIT_PER_SECOND,
			AllowedOrigins:     []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Paths: PathConfig{
			Root:      root,
			Images:    filepath.Join(root, "images"),
			WordGrids: filepath.Join(root, "word_grids"),
			Jsons:     filepath.Join(root, "jsons"),
			Models:    DefaultModelsPath,
			Xmls:      filepath.Join(root, "xmls"),
			Uploads:   filepath.Join(root, "uploads"),
			Temp:      os.TempDir(),
		},
		Embedding: EmbeddingConfig{
			VocabSize:         DefaultVocabSize,
			HiddenSize:        DefaultHiddenSize,
			EmbeddingDim:      DefaultEmbeddingDim,
			CheckpointID:      DefaultCheckpointID,
			CheckpointFile:    DefaultCheckpointFile,
			VocabFile:         DefaultVocabFile,
			UsePretrainWeight: true,
			Stride:            DefaultStride,
		},
		Model: ModelConfig{
			Name:                 DefaultModelName,
			OutputDir:            filepath.Join(root, "model_output"),
			ServingURL:           DefaultServingURL,
			RequestTimeout:       ModelRequestTimeout,
			ScoreThreshold:       DefaultScoreThreshold,
			OverlapThreshold:     DefaultOverlapThreshold,
			MinSizeTest:          DefaultMinSizeTest,
			MaxSizeTest:          DefaultMaxSizeTest,
			MaxRetries:           ModelMaxRetries,
			VGTDownloadURL:       VGTDownloadURL,
			EmbeddingDownloadURL: EmbeddingDownloadURL,
		},
		Redis: RedisConfig{
			Addr:             RedisAddr,
			JobDB:            RedisJobStore,
			ResultDB:         RedisResultStore,
			TTL:              RedisJobStoreTTL,
			FallbackInMemory: FALLBACK_REDIS_TO_INTERNALSTORE,
		},
		Workers: WorkerConfig{
			Min:                  MinWorkerCount,
			Max:                  MaxWorkerCount,
			RequestsPerNewWorker: RequestsPerNewWorkerCount,
			IdleTimeout:          IdleWorkerTimeout,
			BufferLimit:          BufferLimit,
			JobTimeout:           JobTimeout,
		},
		Sweep: SweepConfig{Interval: SweepInterval, MaxAge: SweepMaxAge},
	}
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads .env, defaults, the optional config file and LAYOUT_* environment variables.
func NewManager(cfgFile string) (*Manager, error) {
	_ = godotenv.Load()

	cm := &Manager{v: viper.New()}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	setDefaults(cm.v, Default())

	cm.v.SetEnvPrefix("LAYOUT")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.layoutapi")
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// AutomaticEnv only resolves keys viper already knows, so every leaf gets a default.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.rate_limit_per_second", d.Server.RateLimitPerSecond)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("paths.root", d.Paths.Root)
	v.SetDefault("paths.images", d.Paths.Images)
	v.SetDefault("paths.word_grids", d.Paths.WordGrids)
	v.SetDefault("paths.jsons", d.Paths.Jsons)
	v.SetDefault("paths.models", d.Paths.Models)
	v.SetDefault("paths.xmls", d.Paths.Xmls)
	v.SetDefault("paths.uploads", d.Paths.Uploads)
	v.SetDefault("paths.temp", d.Paths.Temp)

	v.SetDefault("embedding.vocab_size", d.Embedding.VocabSize)
	v.SetDefault("embedding.hidden_size", d.Embedding.HiddenSize)
	v.SetDefault("embedding.embedding_dim", d.Embedding.EmbeddingDim)
	v.SetDefault("embedding.checkpoint_id", d.Embedding.CheckpointID)
	v.SetDefault("embedding.checkpoint_file", d.Embedding.CheckpointFile)
	v.SetDefault("embedding.vocab_file", d.Embedding.VocabFile)
	v.SetDefault("embedding.use_pretrain_weight", d.Embedding.UsePretrainWeight)
	v.SetDefault("embedding.use_unk_text", d.Embedding.UseUNKText)
	v.SetDefault("embedding.stride", d.Embedding.Stride)
	v.SetDefault("embedding.seed", d.Embedding.Seed)

	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.config_file", d.Model.ConfigFile)
	v.SetDefault("model.output_dir", d.Model.OutputDir)
	v.SetDefault("model.serving_url", d.Model.ServingURL)
	v.SetDefault("model.request_timeout", d.Model.RequestTimeout)
	v.SetDefault("model.score_threshold", d.Model.ScoreThreshold)
	v.SetDefault("model.overlap_threshold", d.Model.OverlapThreshold)
	v.SetDefault("model.min_size_test", d.Model.MinSizeTest)
	v.SetDefault("model.max_size_test", d.Model.MaxSizeTest)
	v.SetDefault("model.max_retries", d.Model.MaxRetries)
	v.SetDefault("model.vgt_download_url", d.Model.VGTDownloadURL)
	v.SetDefault("model.embedding_download_url", d.Model.EmbeddingDownloadURL)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.job_db", d.Redis.JobDB)
	v.SetDefault("redis.result_db", d.Redis.ResultDB)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("redis.fallback_in_memory", d.Redis.FallbackInMemory)

	v.SetDefault("workers.min", d.Workers.Min)
	v.SetDefault("workers.max", d.Workers.Max)
	v.SetDefault("workers.requests_per_new_worker", d.Workers.RequestsPerNewWorker)
	v.SetDefault("workers.idle_timeout", d.Workers.IdleTimeout)
	v.SetDefault("workers.buffer_limit", d.Workers.BufferLimit)
	v.SetDefault("workers.job_timeout", d.Workers.JobTimeout)

	v.SetDefault("sweep.interval", d.Sweep.Interval)
	v.SetDefault("sweep.max_age", d.Sweep.MaxAge)
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Embedding.Stride < 1 {
		return fmt.Errorf("embedding.stride must be >= 1, got %d", c.Embedding.Stride)
	}
	if c.Embedding.VocabSize < 1 || c.Embedding.HiddenSize < 1 || c.Embedding.EmbeddingDim < 1 {
		return errors.New("embedding sizes must be positive")
	}
	if c.Paths.Images == "" || c.Paths.WordGrids == "" || c.Paths.Jsons == "" {
		return errors.New("paths.images, paths.word_grids and paths.jsons are required")
	}
	if c.Model.ScoreThreshold < 0 || c.Model.ScoreThreshold > 1 {
		return fmt.Errorf("model.score_threshold out of range: %v", c.Model.ScoreThreshold)
	}
	return nil
}

// Get returns the current configuration.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback run after every successful reload.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// Watch reloads the config file on change. Invalid edits keep the previous config.
func (cm *Manager) Watch() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config reload from %s rejected: %v\n", e.Name, err)
			return
		}
		cm.mu.Lock()
		cm.config = cfg
		callbacks := append([]func(*Config){}, cm.callbacks...)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// EnsureDirs creates every working directory the pipeline writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Images, c.Paths.WordGrids, c.Paths.Jsons, c.Paths.Xmls, c.Paths.Uploads, c.Model.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
