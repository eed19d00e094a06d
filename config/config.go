package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Port string `mapstructure:"PORT"`
	}

	Relay struct {
		MaxConnections int `mapstructure:"MAX_CONNECTIONS"`
		SendBufferSize int `mapstructure:"SEND_BUFFER_SIZE"`
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("GMRELAY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("App.NAME", "gm-session-relay")
	viper.SetDefault("App.PORT", ":3000")
	viper.SetDefault("Relay.MAX_CONNECTIONS", 10000)
	viper.SetDefault("Relay.SEND_BUFFER_SIZE", 256)

	if err := viper.ReadInConfig(); err != nil {
		// the yaml file is optional, env vars alone are enough for the relay
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}
