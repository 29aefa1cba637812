package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Pacing   PacingConfig   `yaml:"pacing" mapstructure:"pacing"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CrawlConfig configures the batch orchestrator.
type CrawlConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	StartVolume   int    `yaml:"start_volume" mapstructure:"start_volume"`
	EndVolume     int    `yaml:"end_volume" mapstructure:"end_volume"`
	OutputDir     string `yaml:"output_dir" mapstructure:"output_dir"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	RotateEvery   int    `yaml:"rotate_every" mapstructure:"rotate_every"`
	ProgressEvery int    `yaml:"progress_every" mapstructure:"progress_every"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IdentityConfig configures the identity pool. The header pools feed
// rotation: each rotation draws a fresh combination.
type IdentityConfig struct {
	PoolSize        int      `yaml:"pool_size" mapstructure:"pool_size"`
	MaxRequests     int      `yaml:"max_requests" mapstructure:"max_requests"`
	MaxAgeSecs      int      `yaml:"max_age_secs" mapstructure:"max_age_secs"`
	UserAgents      []string `yaml:"user_agents" mapstructure:"user_agents"`
	AcceptLanguages []string `yaml:"accept_languages" mapstructure:"accept_languages"`
	Referers        []string `yaml:"referers" mapstructure:"referers"`
	CacheControls   []string `yaml:"cache_controls" mapstructure:"cache_controls"`
}

// PacingConfig configures the rate governor. All durations are in
// milliseconds to keep the YAML surface flat.
type PacingConfig struct {
	BaseDelayMs      int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	JitterMinMs      int     `yaml:"jitter_min_ms" mapstructure:"jitter_min_ms"`
	JitterMaxMs      int     `yaml:"jitter_max_ms" mapstructure:"jitter_max_ms"`
	ExtraJitterMaxMs int     `yaml:"extra_jitter_max_ms" mapstructure:"extra_jitter_max_ms"`
	MaxDelayMs       int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	RetryFactor      float64 `yaml:"retry_factor" mapstructure:"retry_factor"`
	MultiplierCap    float64 `yaml:"multiplier_cap" mapstructure:"multiplier_cap"`
	GlobalFloorMs    int     `yaml:"global_floor_ms" mapstructure:"global_floor_ms"`
	CooldownMinMs    int     `yaml:"cooldown_min_ms" mapstructure:"cooldown_min_ms"`
	CooldownMaxMs    int     `yaml:"cooldown_max_ms" mapstructure:"cooldown_max_ms"`
	BackoffMs        int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
}

// ClassifyConfig holds the phrase sets consulted by the response
// classifier.
type ClassifyConfig struct {
	BlockedPhrases   []string `yaml:"blocked_phrases" mapstructure:"blocked_phrases"`
	CaptchaPhrases   []string `yaml:"captcha_phrases" mapstructure:"captcha_phrases"`
	RequiredKeywords []string `yaml:"required_keywords" mapstructure:"required_keywords"`
}

// ExtractConfig configures record post-processing.
type ExtractConfig struct {
	BoilerplatePhrases []string `yaml:"boilerplate_phrases" mapstructure:"boilerplate_phrases"`
	MinLineLength      int      `yaml:"min_line_length" mapstructure:"min_line_length"`
}

// LedgerConfig configures the failure ledger.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QUANTANG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("crawl.base_url", "https://ctext.org/quantangshi")
	v.SetDefault("crawl.start_volume", 1)
	v.SetDefault("crawl.end_volume", 900)
	v.SetDefault("crawl.output_dir", "volumes")
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.workers", 1)
	v.SetDefault("crawl.rotate_every", 20)
	v.SetDefault("crawl.progress_every", 10)
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("identity.pool_size", 3)
	v.SetDefault("identity.max_requests", 5)
	v.SetDefault("identity.max_age_secs", 600)
	v.SetDefault("identity.accept_languages", []string{
		"zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7",
		"zh-CN,zh;q=0.9,en;q=0.8",
		"zh-TW,zh;q=0.9,en;q=0.8",
	})
	v.SetDefault("identity.referers", []string{
		"https://ctext.org/",
		"https://ctext.org/quantangshi",
		"https://www.google.com/",
	})
	v.SetDefault("identity.cache_controls", []string{"max-age=0", "no-cache"})
	v.SetDefault("pacing.base_delay_ms", 2000)
	v.SetDefault("pacing.jitter_min_ms", 500)
	v.SetDefault("pacing.jitter_max_ms", 2000)
	v.SetDefault("pacing.extra_jitter_max_ms", 1000)
	v.SetDefault("pacing.max_delay_ms", 8000)
	v.SetDefault("pacing.retry_factor", 0.3)
	v.SetDefault("pacing.multiplier_cap", 2.0)
	v.SetDefault("pacing.global_floor_ms", 1000)
	v.SetDefault("pacing.cooldown_min_ms", 3000)
	v.SetDefault("pacing.cooldown_max_ms", 8000)
	v.SetDefault("pacing.backoff_ms", 2000)
	v.SetDefault("classify.blocked_phrases", []string{
		"access unavailable",
		"access to ctext.org is unavailable",
		"strictly prohibited",
		"無法提供服務",
		"嚴禁使用自動下載軟体",
		"cloudflare",
		"security challenge",
		"checking your browser",
	})
	v.SetDefault("classify.captcha_phrases", []string{
		"驗證碼",
		"captcha",
		"verification",
		"security check",
		"請輸入驗證碼",
		"請完成驗證",
		"robot check",
		"human verification",
	})
	v.SetDefault("classify.required_keywords", []string{
		"全唐詩",
		"quantangshi",
		`<h2>《<a`,
		`<td class="ctext">`,
		"詩",
	})
	v.SetDefault("extract.boilerplate_phrases", []string{
		"打開字典",
		"電子圖書館",
		"喜歡我們的網站？請支持我們的發展。",
	})
	v.SetDefault("extract.min_line_length", 4)
	v.SetDefault("ledger.path", "failed_volumes.json")
	v.SetDefault("store.path", "quantang.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
