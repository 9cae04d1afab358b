package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"citynav/internal/basemap"
	"citynav/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	// StoreSQLite keeps locations in a local SQLite file.
	StoreSQLite = "sqlite"
	// StoreFirestore streams locations from a Cloud Firestore collection.
	StoreFirestore = "firestore"

	// tileOff disables the basemap when given as the tile URL.
	tileOff = "off"
)

// Config holds CLI configuration.
type Config struct {
	ConfigDir         string
	Store             string
	DBPath            string
	FirebaseProjectID string
	CredentialsFile   string
	FirebaseAPIKey    string
	TileURL           string
	TileKey           string
	PollInterval      time.Duration
	SentryDSN         string
	LogLevel          string
	LogFile           string
}

var (
	version = "dev"
	config  Config
)

var rootCmd = &cobra.Command{
	Use:   "citynav",
	Short: "Terminal map of student-friendly places",
	Long: `citynav - a terminal city navigator for students.

Browse study spots, food, social venues and accommodation on a live map,
filter by category, search by name and add new places.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()
		return config.resolve(cmd.Flags().Changed, os.Getenv)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd.Context(), &config)
	},
}

// Execute runs the root command.
func Execute(v string) {
	version = v
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.Store, "store", "", "Location store: sqlite or firestore (or set CITYNAV_STORE)")
	flags.StringVar(&config.DBPath, "db", "", "Path to SQLite database file (default: ~/.citynav/citynav.db)")
	flags.StringVar(&config.FirebaseProjectID, "project", "", "Firebase project ID (or set FIREBASE_PROJECT_ID)")
	flags.StringVar(&config.CredentialsFile, "credentials", "", "Service account JSON file (or set GOOGLE_APPLICATION_CREDENTIALS)")
	flags.StringVar(&config.FirebaseAPIKey, "api-key", "", "Firebase web API key for sign-in (or set FIREBASE_API_KEY)")
	flags.StringVar(&config.TileURL, "tile-url", "", "Tile URL template with {z}/{x}/{y}, or \"off\" (or set CITYNAV_TILE_URL)")
	flags.StringVar(&config.TileKey, "tile-key", "", "Tile server API key (or set CITYNAV_TILE_KEY)")
	flags.DurationVar(&config.PollInterval, "poll-interval", 0, "SQLite change polling interval (or set CITYNAV_POLL_INTERVAL)")
	flags.StringVar(&config.SentryDSN, "sentry-dsn", "", "Sentry DSN for error reports (or set SENTRY_DSN)")
	flags.StringVar(&config.LogLevel, "log-level", "", "debug, info, warn or error (or set LOG_LEVEL)")
	flags.StringVar(&config.LogFile, "log-file", "", "Log file (default: ~/.citynav/citynav.log, or set CITYNAV_LOG_FILE)")

	rootCmd.AddCommand(loginCmd, guestCmd, logoutCmd, seedCmd, versionCmd)
}

// loadDotEnv loads .env files from the working directory. Variables already
// in the environment win, and .env.local wins over .env.
func loadDotEnv() {
	for _, path := range []string{".env.local", ".env"} {
		_ = godotenv.Load(path)
	}
}

// resolve fills every field not set by a flag from the environment, then from
// defaults, and creates the config directory.
func (c *Config) resolve(changed func(string) bool, getenv func(string) string) error {
	pick := func(dst *string, flag, env, def string) {
		if changed(flag) {
			*dst = strings.TrimSpace(*dst)
			return
		}
		if v := strings.TrimSpace(getenv(env)); v != "" {
			*dst = v
			return
		}
		*dst = def
	}

	pick(&c.Store, "store", "CITYNAV_STORE", StoreSQLite)
	pick(&c.DBPath, "db", "CITYNAV_DB", "")
	pick(&c.FirebaseProjectID, "project", "FIREBASE_PROJECT_ID", "")
	pick(&c.CredentialsFile, "credentials", "GOOGLE_APPLICATION_CREDENTIALS", "")
	pick(&c.FirebaseAPIKey, "api-key", "FIREBASE_API_KEY", "")
	pick(&c.TileURL, "tile-url", "CITYNAV_TILE_URL", basemap.DefaultURLTemplate)
	pick(&c.TileKey, "tile-key", "CITYNAV_TILE_KEY", "")
	pick(&c.SentryDSN, "sentry-dsn", "SENTRY_DSN", "")
	pick(&c.LogLevel, "log-level", "LOG_LEVEL", "info")
	pick(&c.LogFile, "log-file", "CITYNAV_LOG_FILE", "")

	c.Store = strings.ToLower(c.Store)
	switch c.Store {
	case StoreSQLite:
	case StoreFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("the firestore store requires FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StoreFirestore)
	}

	if strings.EqualFold(c.TileURL, tileOff) {
		c.TileURL = ""
	}

	if !changed("poll-interval") {
		c.PollInterval = db.DefaultPollInterval
		if v := strings.TrimSpace(getenv("CITYNAV_POLL_INTERVAL")); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid CITYNAV_POLL_INTERVAL: %w", err)
			}
			c.PollInterval = d
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}

	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.ConfigDir = filepath.Join(home, ".citynav")
		c.DBPath = filepath.Join(c.ConfigDir, "citynav.db")
	} else {
		c.ConfigDir = filepath.Dir(c.DBPath)
	}
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.ConfigDir, "citynav.log")
	}
	return nil
}
