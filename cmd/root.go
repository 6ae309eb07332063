// Package cmd implements the command-line interface for the harvester.
// It provides the root command and subcommands for extraction, browsing and
// scheduling operations.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/liharvest/cmd/analytics"
	"github.com/jonesrussell/liharvest/cmd/harvest"
	"github.com/jonesrussell/liharvest/cmd/httpd"
	"github.com/jonesrussell/liharvest/cmd/posts"
	"github.com/jonesrussell/liharvest/cmd/schedule"
	"github.com/jonesrussell/liharvest/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "liharvest",
		Short: "Harvest posts and engagement data from a LinkedIn session",
		Long: `liharvest extracts your posts, their engagement counters and your
account analytics from an authenticated LinkedIn session, reconciles the
observations from every available source, and keeps the result in a local
database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get debug flag before creating logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("liharvest version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(harvest.Command())
	rootCmd.AddCommand(posts.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(analytics.Command())
	rootCmd.AddCommand(httpd.Command())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variables win over config file values, so they are wired
	// up before the file is read.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults and environment cover everything.
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	if Debug {
		viper.Set("log.level", "debug")
		viper.Set("log.development", true)
	}

	return nil
}

// bindEnvVars maps the environment variables users actually set to their
// config keys.
func bindEnvVars() error {
	if err := viper.BindEnv("session.cookies", "LINKEDIN_COOKIES"); err != nil {
		return fmt.Errorf("failed to bind LINKEDIN_COOKIES: %w", err)
	}
	if err := viper.BindEnv("relay.url", "RELAY_URL"); err != nil {
		return fmt.Errorf("failed to bind RELAY_URL: %w", err)
	}
	if err := viper.BindEnv("store.path", "STORE_PATH"); err != nil {
		return fmt.Errorf("failed to bind STORE_PATH: %w", err)
	}
	if err := viper.BindEnv("log.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := viper.BindEnv("log.encoding", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	return nil
}
