package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Instrument is one tracked trading pair.
type Instrument struct {
	Symbol    string  `yaml:"symbol"`
	Precision int32   `yaml:"precision" default:"4"`
	TickSize  float64 `yaml:"tick_size"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"logging"`

	Instruments []Instrument `yaml:"instruments"`

	Timeframes struct {
		Tracked []string `yaml:"tracked"`
		Primary string   `yaml:"primary" default:"5m"`
		Confirm string   `yaml:"confirm" default:"1h"`
	} `yaml:"timeframes"`

	Feed struct {
		Source  string `yaml:"source" default:"binance"` // binance or kafka
		Binance struct {
			WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443"`
			RestURL        string        `yaml:"rest_url" default:"https://api.binance.com"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		} `yaml:"binance"`
		KlinesTopic    string `yaml:"klines_topic" default:"market.klines"`
		MaxTicksPerSec int    `yaml:"max_ticks_per_sec" default:"20"`
	} `yaml:"feed"`

	Cache struct {
		Capacity int `yaml:"capacity" default:"500"`
		MinBars  int `yaml:"min_bars" default:"200"`
	} `yaml:"cache"`

	Bootstrap struct {
		Limit      int           `yaml:"limit" default:"500"`
		MaxRetries int           `yaml:"max_retries" default:"4"`
		Backoff    time.Duration `yaml:"backoff" default:"1s"`
		BackoffCap time.Duration `yaml:"backoff_cap" default:"30s"`
	} `yaml:"bootstrap"`

	Engine struct {
		QueueSize  int     `yaml:"queue_size" default:"64"`
		TickBurst  float64 `yaml:"tick_burst" default:"3"`
		TickPerSec float64 `yaml:"tick_per_sec" default:"0.2"`
	} `yaml:"engine"`

	Features struct {
		OrderFlowLookback int `yaml:"orderflow_lookback" default:"10"`
		PivotLeft         int `yaml:"pivot_left" default:"3"`
		PivotRight        int `yaml:"pivot_right" default:"3"`
		RSIPeriod         int `yaml:"rsi_period" default:"14"`
		ATRPeriod         int `yaml:"atr_period" default:"14"`
		LevelCount        int `yaml:"level_count" default:"5"`
	} `yaml:"features"`

	Detectors struct {
		SweepReversal struct {
			Enabled              bool      `yaml:"enabled" default:"true"`
			BaseConfidence       float64   `yaml:"base_confidence" default:"50"`
			MinQuality           float64   `yaml:"min_quality" default:"60"`
			MinWickRatio         float64   `yaml:"min_wick_ratio" default:"1.3"`
			MaxDepthATR          float64   `yaml:"max_depth_atr" default:"1.5"`
			VolumeWindow         int       `yaml:"volume_window" default:"20"`
			ATRBuffer            float64   `yaml:"atr_buffer" default:"0.5"`
			ExtensionBreakpoints []float64 `yaml:"extension_breakpoints"`
		} `yaml:"sweep_reversal"`
		RSIDivergence struct {
			Enabled        bool    `yaml:"enabled" default:"true"`
			BaseConfidence float64 `yaml:"base_confidence" default:"45"`
			Oversold       float64 `yaml:"oversold" default:"30"`
			Overbought     float64 `yaml:"overbought" default:"70"`
			MinPivotGap    int     `yaml:"min_pivot_gap" default:"5"`
			MinDiff        float64 `yaml:"min_diff" default:"3"`
			RequireSweep   bool    `yaml:"require_sweep"`
			SweepQuality   float64 `yaml:"sweep_quality" default:"60"`
			ATRBuffer      float64 `yaml:"atr_buffer" default:"0.5"`
		} `yaml:"rsi_divergence"`
		CVDDivergence struct {
			Enabled        bool    `yaml:"enabled" default:"true"`
			BaseConfidence float64 `yaml:"base_confidence" default:"45"`
			ExtremeBand    float64 `yaml:"extreme_band" default:"0.3"`
			RangeWindow    int     `yaml:"range_window" default:"100"`
			MinPivotGap    int     `yaml:"min_pivot_gap" default:"5"`
			MinDiffPct     float64 `yaml:"min_diff_pct" default:"0.05"`
			RequireSweep   bool    `yaml:"require_sweep"`
			SweepQuality   float64 `yaml:"sweep_quality" default:"60"`
			ATRBuffer      float64 `yaml:"atr_buffer" default:"0.5"`
		} `yaml:"cvd_divergence"`
		Breakout struct {
			Enabled        bool    `yaml:"enabled" default:"true"`
			BaseConfidence float64 `yaml:"base_confidence" default:"40"`
			RangeLookback  int     `yaml:"range_lookback" default:"20"`
			MinVolumeRatio float64 `yaml:"min_volume_ratio" default:"1.5"`
			VolExpansion   float64 `yaml:"vol_expansion" default:"1.2"`
			ATRBuffer      float64 `yaml:"atr_buffer" default:"0.5"`
		} `yaml:"breakout"`
		SRReaction struct {
			Enabled        bool    `yaml:"enabled" default:"true"`
			BaseConfidence float64 `yaml:"base_confidence" default:"40"`
			LevelTolATR    float64 `yaml:"level_tol_atr" default:"0.5"`
			MinWickRatio   float64 `yaml:"min_wick_ratio" default:"1.0"`
			MinVolumeRatio float64 `yaml:"min_volume_ratio" default:"0.9"`
			ATRBuffer      float64 `yaml:"atr_buffer" default:"0.5"`
		} `yaml:"sr_reaction"`
	} `yaml:"detectors"`

	Risk struct {
		MaxOpenPositions int                `yaml:"max_open_positions" default:"3"`
		MaxDailySignals  int                `yaml:"max_daily_signals" default:"10"`
		MaxSymbolDaily   int                `yaml:"max_symbol_daily" default:"4"`
		MinConfidence    float64            `yaml:"min_confidence" default:"60"`
		LossCooldown     time.Duration      `yaml:"loss_cooldown" default:"1h"`
		SymbolCooldown   time.Duration      `yaml:"symbol_cooldown" default:"30m"`
		TypeCooldown     time.Duration      `yaml:"type_cooldown" default:"15m"`
		SizeFloor        float64            `yaml:"size_floor" default:"0.5"`
		SizeCeiling      float64            `yaml:"size_ceiling" default:"1.0"`
		MaxRiskPct       float64            `yaml:"max_risk_pct" default:"2.0"`
		HardRiskPct      float64            `yaml:"hard_risk_pct" default:"3.0"`
		StopATR          map[string]float64 `yaml:"stop_atr"`
		DefaultStopATR   float64            `yaml:"default_stop_atr" default:"1.5"`
	} `yaml:"risk"`

	Dispatch struct {
		TPMultiples []float64     `yaml:"tp_multiples"`
		SendTimeout time.Duration `yaml:"send_timeout" default:"10s"`
	} `yaml:"dispatch"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic" default:"trader.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"trader"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"trader"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"trader"`
	} `yaml:"redis"`

	Telegram struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		BaseURL string `yaml:"base_url" default:"https://api.telegram.org"`
		Token   string `yaml:"token"`
		ChatID  string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Timeframes.Tracked) == 0 {
		c.Timeframes.Tracked = []string{"1m", "5m", "15m", "1h", "4h"}
	}
	if len(c.Dispatch.TPMultiples) == 0 {
		c.Dispatch.TPMultiples = []float64{1.5, 3.0}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Instruments = c.Instruments[:0]
		for _, s := range strings.Split(v, ",") {
			c.Instruments = append(c.Instruments, Instrument{Symbol: strings.TrimSpace(s), Precision: 4})
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	for _, ins := range c.Instruments {
		if ins.Symbol == "" {
			return fmt.Errorf("instrument symbol is required")
		}
	}
	if c.Feed.Source != "binance" && c.Feed.Source != "kafka" {
		return fmt.Errorf("feed.source must be 'binance' or 'kafka', got '%s'", c.Feed.Source)
	}
	if c.Feed.Source == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka feed")
	}
	primary := false
	for _, tf := range c.Timeframes.Tracked {
		if tf == c.Timeframes.Primary {
			primary = true
		}
	}
	if !primary {
		return fmt.Errorf("timeframes.primary %q not in tracked set", c.Timeframes.Primary)
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	if c.Risk.MinConfidence <= 0 || c.Risk.MinConfidence >= 95 {
		return fmt.Errorf("risk.min_confidence must be in (0, 95)")
	}
	if c.Risk.HardRiskPct < c.Risk.MaxRiskPct {
		return fmt.Errorf("risk.hard_risk_pct must be >= risk.max_risk_pct")
	}
	if len(c.Dispatch.TPMultiples) != 2 {
		return fmt.Errorf("dispatch.tp_multiples must have exactly 2 entries")
	}
	return nil
}
