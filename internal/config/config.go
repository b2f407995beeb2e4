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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Consensus ConsensusConfig `yaml:"consensus" mapstructure:"consensus"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Probe     ProbeConfig     `yaml:"probe" mapstructure:"probe"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// RegistryConfig points at the editable source reliability table. When Path
// is empty the built-in table is used.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DecayBand maps a maximum record age to a confidence penalty.
type DecayBand struct {
	UpToDays int     `yaml:"up_to_days" mapstructure:"up_to_days"`
	Penalty  float64 `yaml:"penalty" mapstructure:"penalty"`
}

// DecayConfig holds the stepped temporal decay schedule. Ages beyond the
// last band take MaxPenalty.
type DecayConfig struct {
	Bands      []DecayBand `yaml:"bands" mapstructure:"bands"`
	MaxPenalty float64     `yaml:"max_penalty" mapstructure:"max_penalty"`
	// Damping scales the penalty before it is subtracted from the score.
	// Historical facts do not become less true with time, so decay is
	// applied at half weight.
	Damping float64 `yaml:"damping" mapstructure:"damping"`
}

// ScorerConfig holds every constant of the confidence composition. All
// values were reverse-derived from observed behavior and are deliberately
// configuration, not code.
type ScorerConfig struct {
	CoreBaseline    float64 `yaml:"core_baseline" mapstructure:"core_baseline"`
	MinimalBaseline float64 `yaml:"minimal_baseline" mapstructure:"minimal_baseline"`

	CompletenessWeight float64 `yaml:"completeness_weight" mapstructure:"completeness_weight"`
	SourceWeight       float64 `yaml:"source_weight" mapstructure:"source_weight"`
	AlignmentWeight    float64 `yaml:"alignment_weight" mapstructure:"alignment_weight"`

	// Diminishing bonus for distinct source count; index = count-1, the last
	// value applies to all higher counts.
	SourceCountBonuses []float64 `yaml:"source_count_bonuses" mapstructure:"source_count_bonuses"`

	PosterBonus   float64 `yaml:"poster_bonus" mapstructure:"poster_bonus"`
	SynopsisBonus float64 `yaml:"synopsis_bonus" mapstructure:"synopsis_bonus"`

	MinSynopsisLength int `yaml:"min_synopsis_length" mapstructure:"min_synopsis_length"`

	CoreCap      float64 `yaml:"core_cap" mapstructure:"core_cap"`
	ImportantCap float64 `yaml:"important_cap" mapstructure:"important_cap"`
	ExtendedCap  float64 `yaml:"extended_cap" mapstructure:"extended_cap"`

	AlignmentVarianceScale float64 `yaml:"alignment_variance_scale" mapstructure:"alignment_variance_scale"`

	FloorScore   float64 `yaml:"floor_score" mapstructure:"floor_score"`
	CeilingScore float64 `yaml:"ceiling_score" mapstructure:"ceiling_score"`

	VerifiedCutoff   float64 `yaml:"verified_cutoff" mapstructure:"verified_cutoff"`
	HighCutoff       float64 `yaml:"high_cutoff" mapstructure:"high_cutoff"`
	MediumCutoff     float64 `yaml:"medium_cutoff" mapstructure:"medium_cutoff"`
	LowCutoff        float64 `yaml:"low_cutoff" mapstructure:"low_cutoff"`
	VerifiedTier1Min int     `yaml:"verified_tier1_min" mapstructure:"verified_tier1_min"`

	Decay DecayConfig `yaml:"decay" mapstructure:"decay"`
}

// ConsensusConfig gates auto-filling of categorical fields.
type ConsensusConfig struct {
	Threshold       float64 `yaml:"threshold" mapstructure:"threshold"`
	AmbiguityMargin float64 `yaml:"ambiguity_margin" mapstructure:"ambiguity_margin"`
}

// EngineConfig configures a batch run.
type EngineConfig struct {
	BatchSize       int      `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency     int      `yaml:"concurrency" mapstructure:"concurrency"`
	StaleAfterHours int      `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	Fields          []string `yaml:"fields" mapstructure:"fields"`
}

// ProbeConfig configures the optional poster reachability probe.
type ProbeConfig struct {
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// AuditConfig configures where run reports are written.
type AuditConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the run-trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultDecayBands is the stepped schedule: fresh records decay nothing,
// and the penalty saturates at MaxPenalty beyond a year.
var DefaultDecayBands = []DecayBand{
	{UpToDays: 30, Penalty: 0},
	{UpToDays: 90, Penalty: 0.05},
	{UpToDays: 180, Penalty: 0.10},
	{UpToDays: 365, Penalty: 0.15},
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "catalog.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("scorer.core_baseline", 0.40)
	v.SetDefault("scorer.minimal_baseline", 0.20)
	v.SetDefault("scorer.completeness_weight", 0.35)
	v.SetDefault("scorer.source_weight", 0.15)
	v.SetDefault("scorer.alignment_weight", 0.05)
	v.SetDefault("scorer.source_count_bonuses", []float64{0.04, 0.07, 0.10})
	v.SetDefault("scorer.poster_bonus", 0.05)
	v.SetDefault("scorer.synopsis_bonus", 0.05)
	v.SetDefault("scorer.min_synopsis_length", 120)
	v.SetDefault("scorer.core_cap", 0.40)
	v.SetDefault("scorer.important_cap", 0.30)
	v.SetDefault("scorer.extended_cap", 0.30)
	v.SetDefault("scorer.alignment_variance_scale", 4.0)
	v.SetDefault("scorer.floor_score", 0.15)
	v.SetDefault("scorer.ceiling_score", 1.0)
	v.SetDefault("scorer.verified_cutoff", 0.80)
	v.SetDefault("scorer.high_cutoff", 0.60)
	v.SetDefault("scorer.medium_cutoff", 0.40)
	v.SetDefault("scorer.low_cutoff", 0.20)
	v.SetDefault("scorer.verified_tier1_min", 2)
	v.SetDefault("scorer.decay.max_penalty", 0.20)
	v.SetDefault("scorer.decay.damping", 0.5)

	v.SetDefault("consensus.threshold", 0.65)
	v.SetDefault("consensus.ambiguity_margin", 0.10)

	v.SetDefault("engine.batch_size", 200)
	v.SetDefault("engine.concurrency", 8)
	v.SetDefault("engine.stale_after_hours", 24)
	v.SetDefault("engine.fields", []string{"genre", "content_rating"})

	v.SetDefault("probe.concurrency", 5)
	v.SetDefault("probe.timeout_secs", 10)
	v.SetDefault("probe.requests_per_sec", 4.0)

	v.SetDefault("audit.dir", "reports")

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

	// Structured defaults viper cannot express cleanly.
	if len(cfg.Scorer.Decay.Bands) == 0 {
		cfg.Scorer.Decay.Bands = DefaultDecayBands
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
