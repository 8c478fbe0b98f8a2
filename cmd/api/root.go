package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nvd-api/internal/config"
	"nvd-api/internal/server"
	"nvd-api/internal/utils"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "nvd-api",
	Short:         "Read-only HTTP query API over an NVD CVE database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return nil
		}
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return xerrors.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadConfig()
		if err := c.Validate(); err != nil {
			return err
		}
		if err := utils.ConfigureLogging(c.LogLevel, c.LogFormat, cmd.ErrOrStderr()); err != nil {
			return err
		}

		srv, err := server.NewServer(c)
		if err != nil {
			return xerrors.Errorf("failed to create the server: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Start(ctx)
	},
}

func loadConfig() *config.Config {
	c := config.New(
		viper.GetString("addr"),
		viper.GetString("db"),
		viper.GetString("log-level"),
		viper.GetString("log-format"),
	)
	c.QueryTimeout = viper.GetDuration("query-timeout")
	c.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	c.BreakerFailures = viper.GetUint32("breaker-failures")
	c.BreakerCooldown = viper.GetDuration("breaker-cooldown")
	return c
}

func init() {
	flags := rootCmd.PersistentFlags()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("NVD")

	flags.StringVar(&cfgFile, "config", "", "optional YAML config file")
	flags.StringP("addr", "a", ":8080", "listen address (env: NVD_ADDR)")
	flags.StringP("db", "d", "nvd_cve.db", "SQLite database path (env: NVD_DB)")
	flags.String("log-level", "info", "log level (env: NVD_LOG_LEVEL)")
	flags.String("log-format", "text", "log format, text or json (env: NVD_LOG_FORMAT)")
	flags.Duration("query-timeout", 0, "per-query timeout, 0 disables (env: NVD_QUERY_TIMEOUT)")
	flags.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout (env: NVD_SHUTDOWN_TIMEOUT)")
	flags.Uint32("breaker-failures", 5, "consecutive store failures that open the circuit breaker, 0 disables")
	flags.Duration("breaker-cooldown", 30*time.Second, "time the circuit breaker stays open")

	for _, name := range []string{
		"addr", "db", "log-level", "log-format",
		"query-timeout", "shutdown-timeout", "breaker-failures", "breaker-cooldown",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(routesCmd)
}

func Execute() error {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	return rootCmd.Execute()
}
