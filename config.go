// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package plancompiler

import (
	"io/ioutil"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/src-d/go-errors.v1"
	"gopkg.in/yaml.v2"

	"github.com/dolthub/go-plancompiler/internal/similartext"
	"github.com/dolthub/go-plancompiler/sql"
	compiler "github.com/dolthub/go-plancompiler/sql/plancompiler"
)

// ErrUnknownConfigKey is returned when a configuration file has a key that
// is not a setting.
var ErrUnknownConfigKey = errors.NewKind("unknown configuration key %q%s")

var configKeys = []string{
	"debug",
	"verbose",
	"log_level",
	"log_format",
	"max_rule_iterations",
	"max_join_elimination_passes",
	"use_database_null_semantics",
	"disabled_phases",
	"constraint_cache_size",
	"models",
}

// Config holds the settings of an Engine. It is usually read from a YAML
// file with LoadConfig.
type Config struct {
	Debug     bool   `yaml:"debug"`
	Verbose   bool   `yaml:"verbose"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MaxRuleIterations        int      `yaml:"max_rule_iterations"`
	MaxJoinEliminationPasses int      `yaml:"max_join_elimination_passes"`
	UseDatabaseNullSemantics bool     `yaml:"use_database_null_semantics"`
	DisabledPhases           []string `yaml:"disabled_phases"`
	ConstraintCacheSize      int      `yaml:"constraint_cache_size"`

	// Models are paths of model files loaded when the engine is created.
	Models []string `yaml:"models"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	opts := compiler.DefaultOptions()
	return &Config{
		LogLevel:                 "info",
		LogFormat:                LogFormatText,
		MaxRuleIterations:        opts.MaxRuleIterations,
		MaxJoinEliminationPasses: opts.MaxJoinEliminationPasses,
		ConstraintCacheSize:      opts.ConstraintCacheSize,
	}
}

// LoadConfig reads the configuration file at path. Relative model paths are
// resolved against the directory of the file.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i, m := range cfg.Models {
		if !filepath.IsAbs(m) {
			cfg.Models[i] = filepath.Join(dir, m)
		}
	}
	return cfg, nil
}

// ParseConfig parses a YAML configuration. Settings missing from data keep
// their default value. Scalars are accepted in any form that converts to
// the type of the setting, so "10" and 10 are both valid limits.
func ParseConfig(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	for key, value := range raw {
		var err error
		switch key {
		case "debug":
			cfg.Debug, err = cast.ToBoolE(value)
		case "verbose":
			cfg.Verbose, err = cast.ToBoolE(value)
		case "log_level":
			cfg.LogLevel, err = cast.ToStringE(value)
		case "log_format":
			cfg.LogFormat, err = cast.ToStringE(value)
		case "max_rule_iterations":
			cfg.MaxRuleIterations, err = toPositiveInt(value)
		case "max_join_elimination_passes":
			cfg.MaxJoinEliminationPasses, err = toPositiveInt(value)
		case "use_database_null_semantics":
			cfg.UseDatabaseNullSemantics, err = cast.ToBoolE(value)
		case "disabled_phases":
			cfg.DisabledPhases, err = cast.ToStringSliceE(value)
		case "constraint_cache_size":
			cfg.ConstraintCacheSize, err = toPositiveInt(value)
		case "models":
			cfg.Models, err = cast.ToStringSliceE(value)
		default:
			return nil, ErrUnknownConfigKey.New(key, similartext.Find(configKeys, key))
		}
		if err != nil {
			return nil, sql.ErrInvalidConfig.New(key, err)
		}
	}

	return cfg, nil
}

func toPositiveInt(v interface{}) (int, error) {
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, err
	}
	if i <= 0 {
		return 0, sql.ErrInvalidConfig.New("limit", i)
	}
	return i, nil
}

// Options returns the compiler options of the configuration.
func (c *Config) Options() compiler.Options {
	return compiler.Options{
		Debug:                    c.Debug,
		Verbose:                  c.Verbose,
		MaxRuleIterations:        c.MaxRuleIterations,
		MaxJoinEliminationPasses: c.MaxJoinEliminationPasses,
		UseDatabaseNullSemantics: c.UseDatabaseNullSemantics,
		DisabledPhases:           c.DisabledPhases,
		ConstraintCacheSize:      c.ConstraintCacheSize,
	}
}
