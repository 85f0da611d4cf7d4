package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lochistory",
	Short: "Browse a location history by date and by geohash",
	Long: `lochistory is a viewer for recorded location events.

It serves the browser front-end and proxies its queries to the location-history
API, renders views headlessly (list HTML plus map state as GeoJSON), and does
date arithmetic on YYYY, YYYY-MM and YYYY-MM-DD strings.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "http://localhost:3000", "Base URL of the location-history API")
	rootCmd.PersistentFlags().Float64("rate-limit", 0, "Max API requests per second (0 disables the limit)")
	rootCmd.PersistentFlags().String("timezone", "Local", "IANA time zone for day windows")
	rootCmd.PersistentFlags().String("locale", "en", "BCP 47 locale for formatting counts")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("api.url", "api-url")
	mustBind("api.rate_limit", "rate-limit")
	mustBind("timezone", "timezone")
	mustBind("locale", "locale")
	mustBind("verbose", "verbose")
}

func initConfig() {
	// Values from .env.local become LOCHISTORY_* environment variables; real
	// environment variables win.
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Failed to load .env.local:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("LOCHISTORY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func initLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadLocation resolves the --timezone flag. "Local" and "" mean the host zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return loc, nil
}
