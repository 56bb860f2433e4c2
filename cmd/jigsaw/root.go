package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alem-hub/jigsaw-mixer/config"
)

var rootCmd = &cobra.Command{
	Use:   "jigsaw",
	Short: "Jigsaw classroom grouping service",
	Long: `jigsaw assigns expert topics to students, builds home groups with one
expert per topic where possible and walks the class through the
setup, expert, teaching and review phases of a jigsaw lesson.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or text (overrides LOG_FORMAT)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// JIGSAW_HTTP_PORT for http.port and so on.
	viper.SetEnvPrefix("JIGSAW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the environment configuration and applies flag overrides.
// Only flags that were set explicitly win over the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if viper.IsSet("log.level") {
		cfg.Observability.LogLevel = viper.GetString("log.level")
	}
	if viper.IsSet("log.format") {
		cfg.Observability.LogFormat = viper.GetString("log.format")
	}
	if viper.IsSet("http.host") {
		cfg.HTTP.Host = viper.GetString("http.host")
	}
	if viper.IsSet("http.port") {
		cfg.HTTP.Port = viper.GetInt("http.port")
	}
	if viper.IsSet("session.preset") {
		cfg.Session.PresetPath = viper.GetString("session.preset")
	}
	if viper.IsSet("session.seed") {
		cfg.Session.Seed = viper.GetUint64("session.seed")
	}
	if viper.IsSet("redis.enabled") {
		cfg.Redis.Enabled = viper.GetBool("redis.enabled")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
