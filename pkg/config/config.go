package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/playnet-public/gorcon-mc/pkg/common"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/connection"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

//Config of a gorcon-mc instance
type Config struct {
	Rcon      Rcon      `mapstructure:"rcon"`
	API       API       `mapstructure:"api"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Sentry    Sentry    `mapstructure:"sentry"`
	Debug     bool      `mapstructure:"debug"`
}

//Rcon connection settings
type Rcon struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	TLS         string        `mapstructure:"tls"`
	Timeout     time.Duration `mapstructure:"timeout"`
	QuietPeriod time.Duration `mapstructure:"quietPeriod"`
}

//API settings
type API struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

//Scheduler settings
type Scheduler struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

//Sentry settings
type Sentry struct {
	DSN string `mapstructure:"dsn"`
}

var envBindings = map[string]string{
	"rcon.host":         "HOST",
	"rcon.port":         "PORT",
	"rcon.password":     "PASSWORD",
	"rcon.tls":          "TLS_MODE",
	"rcon.timeout":      "TIMEOUT",
	"rcon.quietPeriod":  "QUIET_PERIOD",
	"api.enabled":       "ADMIN_COMMANDS",
	"api.listen":        "API_LISTEN",
	"scheduler.enabled": "SCHEDULER",
	"scheduler.path":    "SCHEDULE_PATH",
	"sentry.dsn":        "SENTRY_DSN",
	"debug":             "DEBUG",
}

func setDefaults(cfg *viper.Viper) {
	cfg.SetDefault("rcon.port", connection.DefaultPort)
	cfg.SetDefault("rcon.tls", connection.TLSDisabled.String())
	cfg.SetDefault("rcon.timeout", connection.DefaultTimeout)
	cfg.SetDefault("rcon.quietPeriod", connection.DefaultQuietPeriod)
	cfg.SetDefault("api.enabled", false)
	cfg.SetDefault("api.listen", ":8080")
	cfg.SetDefault("scheduler.enabled", false)
	cfg.SetDefault("scheduler.path", "schedule.json")
}

//Load reads config.{yaml,json,toml} from path if present, with values from the environment
//taking precedence. A .env file in path is loaded into the environment first and overrides it.
func Load(path string) (*Config, error) {
	if err := gotenv.OverLoad(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env failed: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.AddConfigPath(path)
	setDefaults(cfg)
	for key, env := range envBindings {
		if err := cfg.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config failed: %w", err)
		}
	}

	c := &Config{}
	if err := cfg.Unmarshal(c, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

//secondsHook reads unitless durations such as TIMEOUT=5 as seconds
func secondsHook(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return data, nil
		}
		return time.Duration(n * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

//Validate checks that a connection can be built from c
func (c *Config) Validate() error {
	if c.Rcon.Host == "" || c.Rcon.Password == "" {
		return fmt.Errorf("%w: HOST or PASSWORD not set", common.ErrInvalidConfig)
	}
	if c.Rcon.Port < 1 || c.Rcon.Port > 65535 {
		return fmt.Errorf("%w: invalid PORT %d", common.ErrInvalidConfig, c.Rcon.Port)
	}
	if _, err := connection.ParseTLSMode(c.Rcon.TLS); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if c.Rcon.Timeout <= 0 || c.Rcon.QuietPeriod <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", common.ErrInvalidConfig)
	}
	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("%w: api enabled without listen address", common.ErrInvalidConfig)
	}
	return nil
}

//Connection returns the transport settings. c must be valid.
func (c *Config) Connection() connection.Config {
	mode, _ := connection.ParseTLSMode(c.Rcon.TLS)
	return connection.Config{
		Host:        c.Rcon.Host,
		Port:        c.Rcon.Port,
		Password:    c.Rcon.Password,
		TLS:         mode,
		Timeout:     c.Rcon.Timeout,
		QuietPeriod: c.Rcon.QuietPeriod,
	}
}

//String omits the password
func (c *Config) String() string {
	return fmt.Sprintf("rcon=%s api=%t(%s) scheduler=%t(%s) debug=%t",
		c.Connection(), c.API.Enabled, c.API.Listen, c.Scheduler.Enabled, c.Scheduler.Path, c.Debug)
}
