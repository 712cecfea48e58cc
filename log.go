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
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dolthub/go-plancompiler/sql"
)

// Log formats accepted by the log_format setting.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger creates the logger of an Engine from its configuration. Debug
// forces the debug level.
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = os.Stderr

	level := logrus.InfoLevel
	if cfg.LogLevel != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.LogLevel); err != nil {
			return nil, sql.ErrInvalidConfig.New("log_level", cfg.LogLevel)
		}
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logger.Level = level

	switch cfg.LogFormat {
	case "", LogFormatText:
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	case LogFormatJSON:
		logger.Formatter = &logrus.JSONFormatter{}
	default:
		return nil, sql.ErrInvalidConfig.New("log_format", cfg.LogFormat)
	}

	return logger, nil
}
