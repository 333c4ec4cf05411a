// Package opal implements the core of a bilateral derivatives ledger
// application: contract validation for option and IOU state transitions, and
// an oracle service that attests to market data over selectively disclosed
// transactions.
//
// The consensus, transport and storage layers of a deployment are expected to
// be provided by the surrounding platform. This module only contains the
// deterministic rule engines, the oracle and the in-process flow drivers used
// by the demo and the tests.
package opal

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "OPAL_LOG_LEVEL"

const defaultLevel = zerolog.InfoLevel

func init() {
	switch os.Getenv(EnvLogLevel) {
	case "error":
		Logger = Logger.Level(zerolog.ErrorLevel)
	case "warn":
		Logger = Logger.Level(zerolog.WarnLevel)
	case "info":
		Logger = Logger.Level(zerolog.InfoLevel)
	case "debug":
		Logger = Logger.Level(zerolog.DebugLevel)
	case "trace":
		Logger = Logger.Level(zerolog.TraceLevel)
	case "":
		Logger = Logger.Level(defaultLevel)
	}
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it only prints
// info level messages but it can be changed through the OPAL_LOG_LEVEL
// environment variable.
var Logger = zerolog.New(logout).
	Level(defaultLevel).
	With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes the prometheus collectors created in the module. An
// external agent is responsible for registering them on an exporter.
var PromCollectors []prometheus.Collector
