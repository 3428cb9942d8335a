/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. Extra writers receive the raw
// JSON lines regardless of environment.
func Setup(environment string, extra ...io.Writer) zerolog.Logger {
	return SetupWithWriter(environment, os.Stdout, extra...)
}

// SetupWithWriter configures zerolog to write to out. Production writes JSON
// lines; other environments get the human-readable console format.
func SetupWithWriter(environment string, out io.Writer, extra ...io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("MINISTRY_LOG_LEVEL"))); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}

	var writer io.Writer = zerolog.ConsoleWriter{Out: out}
	if strings.EqualFold(environment, "production") {
		writer = out
	}
	if len(extra) > 0 {
		writer = zerolog.MultiLevelWriter(append([]io.Writer{writer}, extra...)...)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
