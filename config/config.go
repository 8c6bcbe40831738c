// Package config loads pipeline configuration from YAML with CONVO_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Service struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type Services struct {
	Diarization Service `mapstructure:"diarization" yaml:"diarization"`
	Embedding   Service `mapstructure:"embedding" yaml:"embedding"`
	Prosody     Service `mapstructure:"prosody" yaml:"prosody"`
}

type Prosody struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls" yaml:"max_polls"`
}

type Extractor struct {
	FFmpegPath string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir"`
}

type Matching struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Paths struct {
	Outputs  string `mapstructure:"outputs" yaml:"outputs"`
	Profiles string `mapstructure:"profiles" yaml:"profiles"`
}

type Root struct {
	Log       Log       `mapstructure:"log" yaml:"log"`
	Services  Services  `mapstructure:"services" yaml:"services"`
	Prosody   Prosody   `mapstructure:"prosody" yaml:"prosody"`
	Extractor Extractor `mapstructure:"extractor" yaml:"extractor"`
	Matching  Matching  `mapstructure:"matching" yaml:"matching"`
	Paths     Paths     `mapstructure:"paths" yaml:"paths"`
}

// Load reads the config file at path, or searches ./ and ./config when
// path is empty. A missing file is fine in that case; defaults and env
// overrides still apply.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("services.diarization.url", "http://localhost:8001")
	v.SetDefault("services.embedding.url", "http://localhost:8002")
	v.SetDefault("services.prosody.url", "http://localhost:8003")
	v.SetDefault("prosody.poll_interval", 2*time.Second)
	v.SetDefault("prosody.max_polls", 150)
	v.SetDefault("extractor.ffmpeg_path", "ffmpeg")
	v.SetDefault("extractor.scratch_dir", filepath.Join(os.TempDir(), "conversation-pipeline"))
	v.SetDefault("matching.threshold", 0.25)
	v.SetDefault("paths.outputs", "outputs")
	v.SetDefault("paths.profiles", "profiles")
}

// Dump renders the effective configuration as YAML for debugging.
func (r *Root) Dump() (string, error) {
	b, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
