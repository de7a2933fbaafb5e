// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"pose-sentinel/internal/auth"
	"pose-sentinel/internal/behavior"
	"pose-sentinel/internal/engine"
	"pose-sentinel/internal/gait"
)

type Config struct {
	Server struct {
		DataPort int `mapstructure:"data_port"`
		UIPort   int `mapstructure:"ui_port"`
	} `mapstructure:"server"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"logging"`
	Analysis struct {
		SampleRate           float64                       `mapstructure:"sample_rate"`
		BufferCapacity       int                           `mapstructure:"buffer_capacity"`
		AlertCooldownSeconds int                           `mapstructure:"alert_cooldown_seconds"`
		RuleOverrides        map[string]map[string]float64 `mapstructure:"rule_overrides"`
	} `mapstructure:"analysis"`
	History struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"history"`
	Gait struct {
		// Profiles seeds the matcher when no external profile store is
		// wired in; production deployments inject their own store.
		Profiles []gait.Profile `mapstructure:"profiles"`
	} `mapstructure:"gait"`
	Auth auth.Config `mapstructure:"auth"`
}

var AppConfig Config

func LoadConfig(path string) error {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.SetEnvPrefix("sentinel")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults keep the service runnable without a config file.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.data_port", 8080)
	viper.SetDefault("server.ui_port", 8081)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.pretty", false)
	viper.SetDefault("analysis.sample_rate", engine.DefaultSampleRate)
	viper.SetDefault("analysis.buffer_capacity", engine.DefaultBufferCapacity)
	viper.SetDefault("analysis.alert_cooldown_seconds", 120)
	viper.SetDefault("history.capacity", 100)
	viper.SetDefault("auth.jwt_expiration", 60)
}

// Cooldown returns the configured alert cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Analysis.AlertCooldownSeconds) * time.Second
}

// Rules applies the configured per-rule parameter overrides onto the static
// registry. Unknown rule names or parameters are ignored: the rule set is
// closed.
func (c *Config) Rules() map[string]behavior.Rule {
	rules := behavior.DefaultRules()
	for name, overrides := range c.Analysis.RuleOverrides {
		rule, ok := rules[name]
		if !ok {
			continue
		}
		params := make(map[string]float64, len(rule.Params))
		for k, v := range rule.Params {
			params[k] = v
		}
		for k, v := range overrides {
			if _, ok := params[k]; ok {
				params[k] = v
			}
		}
		rule.Params = params
		rules[name] = rule
	}
	return rules
}
