package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// envPrefix prefixes environment overrides, e.g. DISKMANAGER_COUNT=true.
	envPrefix = "DISKMANAGER"
	// configName is the base name of the configuration file.
	configName = "diskmanager"
)

// loadConfig layers defaults, the configuration file, the environment and flags into v.
// A missing configuration file is only an error when one was named explicitly.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}

		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && file == "" {
			return nil
		}

		return fmt.Errorf("reading config file: %w", err)
	}

	return nil
}
