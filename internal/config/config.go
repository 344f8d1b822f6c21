// Package config loads bodyperf settings from defaults, an optional YAML
// file and BODYPERF_* environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pipeline"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. BODYPERF_DATA_PATH.
const EnvPrefix = "BODYPERF"

// Config is the full application configuration.
type Config struct {
	DataPath   string `mapstructure:"data_path" yaml:"data_path"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`

	Training pipeline.Options `mapstructure:",squash" yaml:",inline"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataPath:   dataset.DefaultPath,
		ListenAddr: ":8501",
		LogLevel:   "info",
		Training:   pipeline.DefaultOptions(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("test_size", d.Training.TestSize)
	v.SetDefault("random_state", d.Training.RandomState)
	v.SetDefault("n_estimators", d.Training.NEstimators)
	v.SetDefault("criterion", d.Training.Criterion)
	v.SetDefault("max_features", d.Training.MaxFeatures)
	v.SetDefault("max_depth", d.Training.MaxDepth)
	v.SetDefault("bootstrap", d.Training.Bootstrap)
	v.SetDefault("n_jobs", d.Training.NJobs)
}

// Load reads configuration. Precedence: env > config file > defaults.
// With an empty cfgFile, bodyperf.yaml is looked up in the working
// directory and in ~/.bodyperf; a missing file there is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		v.SetConfigName("bodyperf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bodyperf"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Training.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as YAML to path, creating parent directories.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir config dir")
		}
	}
	b, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// Marshal renders c as YAML.
func Marshal(c *Config) ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	return b, nil
}
