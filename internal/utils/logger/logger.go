// Package logger provides a global logger for the application
package logger

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const ServiceName = "validator"

var logFile *os.File

// levelFor maps ENVIRONMENT to a log level. mainnet and prod only log info
// and above; everything else is treated as a development deployment.
func levelFor(environment string) zerolog.Level {
	switch environment {
	case "dev", "test", "testnet":
		return zerolog.TraceLevel
	case "prod", "mainnet":
		return zerolog.InfoLevel
	}
	return zerolog.InfoLevel
}

func initLogger() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	debug := flag.Bool("debug", false, "sets log level to debug")
	trace := flag.Bool("trace", false, "sets log level to trace")
	info := flag.Bool("info", false, "sets log level to info (default)")
	flag.Parse()

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "prod"
	}

	logLevel := levelFor(environment)
	if *debug {
		logLevel = zerolog.DebugLevel
		log.Info().Msg("Debug flag detected - overriding environment log level")
	} else if *trace {
		logLevel = zerolog.TraceLevel
		log.Info().Msg("Trace flag detected - overriding environment log level")
	} else if *info {
		logLevel = zerolog.InfoLevel
		log.Info().Msg("Info flag detected - overriding environment log level")
	}

	zerolog.SetGlobalLevel(logLevel)
	log.Info().Str("environment", environment).Str("level", logLevel.String()).Msg("logger initialized")
}

// Init initializes the logger with the configuration from the environment
// and command line flags.
// It sets up the global logger to use zerolog with console output.
// Example usage:
//
//	logger.Init() <- inside whichever main() function in your entrypoint
//
// Then, `go run ./cmd/validator --debug testnet`
func Init() {
	initLogger()
}

// Configure attaches the validator identity to every record and, when path is
// not empty, duplicates records as JSON lines into that file.
func Configure(validatorKey, path string) error {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, f)
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Caller().
		Str("validator_key", validatorKey).
		Str("service", ServiceName).
		Logger()
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	return f, nil
}

// Close flushes and closes the log file sink, if any.
func Close() {
	if logFile != nil {
		logFile.Sync()
		logFile.Close()
		logFile = nil
	}
}
