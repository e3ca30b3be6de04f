package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Generator GeneratorConfig `mapstructure:"generator"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// Mode is "debug" or "release".
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rotating JSON log file when non-empty.
	File string `mapstructure:"file"`
}

// PolicyConfig holds the tunable quiz rules.
type PolicyConfig struct {
	PassingQuizGrade               int `mapstructure:"passing_quiz_grade"`
	MaxNumQuizAttempts             int `mapstructure:"max_num_quiz_attempts"`
	MinHoursBetweenBookQuizAttempt int `mapstructure:"min_hours_between_book_quiz_attempt"`
	MinQuestionsInQuiz             int `mapstructure:"min_questions_in_quiz"`
	MaxQuestionsInQuiz             int `mapstructure:"max_questions_in_quiz"`
}

type GeneratorConfig struct {
	// Mode is "api", "cli" or "mock".
	Mode    string `mapstructure:"mode"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	CLIPath string `mapstructure:"cli_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "readlevel")
	v.SetDefault("database.password", "readlevel")
	v.SetDefault("database.name", "readlevel")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret", "readlevel-dev-signing-key")
	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("policy.passing_quiz_grade", 70)
	v.SetDefault("policy.max_num_quiz_attempts", 3)
	v.SetDefault("policy.min_hours_between_book_quiz_attempt", 24)
	v.SetDefault("policy.min_questions_in_quiz", 3)
	v.SetDefault("policy.max_questions_in_quiz", 20)

	v.SetDefault("generator.mode", "mock")
	v.SetDefault("generator.model", "claude-opus-4-5-20251101")
	v.SetDefault("generator.cli_path", "claude")
}

// Load reads config.yaml from path (if present) and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("READLEVEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "READLEVEL_SERVER_PORT", "PORT")
	v.BindEnv("database.host", "READLEVEL_DATABASE_HOST", "DB_HOST")
	v.BindEnv("database.port", "READLEVEL_DATABASE_PORT", "DB_PORT")
	v.BindEnv("database.user", "READLEVEL_DATABASE_USER", "DB_USER")
	v.BindEnv("database.password", "READLEVEL_DATABASE_PASSWORD", "DB_PASSWORD")
	v.BindEnv("database.name", "READLEVEL_DATABASE_NAME", "DB_NAME")
	v.BindEnv("database.sslmode", "READLEVEL_DATABASE_SSLMODE", "DB_SSLMODE")
	v.BindEnv("jwt.secret", "READLEVEL_JWT_SECRET", "JWT_SECRET")
	v.BindEnv("generator.api_key", "READLEVEL_GENERATOR_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("generator.model", "READLEVEL_GENERATOR_MODEL", "ANTHROPIC_MODEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	p := c.Policy
	if p.PassingQuizGrade < 0 || p.PassingQuizGrade > 100 {
		return fmt.Errorf("policy.passing_quiz_grade must be in [0,100], got %d", p.PassingQuizGrade)
	}
	if p.MaxNumQuizAttempts < 1 {
		return fmt.Errorf("policy.max_num_quiz_attempts must be at least 1, got %d", p.MaxNumQuizAttempts)
	}
	if p.MinHoursBetweenBookQuizAttempt < 0 {
		return fmt.Errorf("policy.min_hours_between_book_quiz_attempt must not be negative")
	}
	if p.MinQuestionsInQuiz < 1 || p.MinQuestionsInQuiz > p.MaxQuestionsInQuiz {
		return fmt.Errorf("policy question bounds invalid: min=%d max=%d", p.MinQuestionsInQuiz, p.MaxQuestionsInQuiz)
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Generator.Mode {
	case "api", "cli", "mock":
	default:
		return fmt.Errorf("generator.mode must be api, cli or mock, got %q", c.Generator.Mode)
	}
	return nil
}
