// Command warepick runs the warehouse pick request coordinator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/warepick/warepick/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "warepick",
	Short:         "Warehouse pick request coordinator",
	Long:          "warepick coordinates warehouse pick requests: creation, exclusive\nclaiming, quantity and shortage bookkeeping, submission, and cleanup.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file path (default: WAREPICK_* environment variables only)")
	rootCmd.AddCommand(serveCmd, initCmd, userCmd, cleanupCmd)
}

// newLogger builds the process logger: console on stderr always, plus
// a rotating JSON file when server_log_file is set.
func newLogger(cfg *config.Config) *zap.Logger {
	level := zapcore.DebugLevel
	if cfg.IsProduction() {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr), level),
	}
	if cfg.ServerLogFile != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.ServerLogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			fileSink, level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
