package configs

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

//go:embed config.example.yaml
var defaultsYAML string

// ReadDefaults seeds v with the embedded config.example.yaml. Config files
// merged afterwards override it key by key.
func ReadDefaults(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultsYAML)); err != nil {
		return fmt.Errorf("failed to read embedded defaults: %w", err)
	}
	return nil
}

func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
