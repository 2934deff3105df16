package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"

	logLevelJSON = "json"
	logLevelText = "text"
)

var rootCmd = &cobra.Command{
	Use:   "price-router",
	Short: "price-router resolves registered asset values through pluggable pricing strategies",
}

func init() {
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logLevelText, "logging format; must be either json or text")

	rootCmd.AddCommand(getStartCmd())
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getCmdLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		logWriter = os.Stderr

	case logLevelText:
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}

	default:
		return zerolog.Logger{}, fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

// trapSignal will listen for any OS signal and cancel the context to
// gracefully shutdown and exit.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal; shutting down...")
		cancel()
	}()
}
