// Package config loads configs/config.yml with LINE_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of the process configuration.
type Config struct {
	Port string `mapstructure:"port"`

	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Line LineConfig `mapstructure:"line"`

	Hub struct {
		ClientBuffer int `mapstructure:"client_buffer"`
	} `mapstructure:"hub"`

	MQTT MQTTConfig `mapstructure:"mqtt"`

	NFC struct {
		// Cards maps an NFC card uid to the pallet code it is glued to.
		Cards map[string]string `mapstructure:"cards"`
	} `mapstructure:"nfc"`

	Auth struct {
		SigningKey string `mapstructure:"signing_key"`
	} `mapstructure:"auth"`

	Admin struct {
		PasswordHash string `mapstructure:"password_hash"`
	} `mapstructure:"admin"`
}

type LineConfig struct {
	Stations            int           `mapstructure:"stations"`
	RequireEquipmentAck bool          `mapstructure:"require_equipment_ack"`
	RequireOrder        bool          `mapstructure:"require_order"`
	LogCapacity         int           `mapstructure:"log_capacity"`
	SyncInterval        time.Duration `mapstructure:"sync_interval"`
}

type MQTTConfig struct {
	Broker        string `mapstructure:"broker"`
	ClientID      string `mapstructure:"client_id"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	QoS           byte   `mapstructure:"qos"`
	StationPrefix string `mapstructure:"station_prefix"`
	CommandPrefix string `mapstructure:"command_prefix"`
	LineTopic     string `mapstructure:"line_topic"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("line.stations", 3)
	v.SetDefault("line.require_equipment_ack", false)
	v.SetDefault("line.require_order", false)
	v.SetDefault("line.log_capacity", 50)
	v.SetDefault("line.sync_interval", time.Second)
	v.SetDefault("hub.client_buffer", 64)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "line-supervisor")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.station_prefix", "line/stations")
	v.SetDefault("mqtt.command_prefix", "line/commands")
	v.SetDefault("mqtt.line_topic", "line/control")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("admin.password_hash", "")
}

// Load reads the config file at path. An empty path searches ./configs/config.yml.
// A missing file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix("LINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Line.Stations < 1 {
		return fmt.Errorf("line.stations must be at least 1, got %d", c.Line.Stations)
	}
	if c.Line.SyncInterval <= 0 {
		return fmt.Errorf("line.sync_interval must be positive")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}
