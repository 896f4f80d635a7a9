package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/AkaBlas/akadressen-utils/pkg/normalize"
	"github.com/AkaBlas/akadressen-utils/pkg/photos"
)

// Config holds the application configuration loaded from flags, environment
// variables, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Roster source
	AkadressenURL      string
	AkadressenUsername string
	AkadressenPassword string

	// Address book
	CardDAVURL      string
	CardDAVUsername string
	CardDAVPassword string

	// Photo providers
	PhotoGatewayURL   string
	PhotoGatewayToken string
	HARPath           string

	// Phone handling
	CountryCode string

	// Photo resolver tuning
	PhotoConcurrency int
	PhotoTimeout     time.Duration
	PhotoBackoff     time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (handled by cobra), environment variables, .env files,
// the config file (~/.akadressen.yaml), and defaults.
func LoadConfig() (*Config, error) {
	// .env files load before Viper reads the environment.
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".akadressen")
		}
	}
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		AkadressenURL:      viper.GetString("akadressen_url"),
		AkadressenUsername: viper.GetString("akadressen_username"),
		AkadressenPassword: viper.GetString("akadressen_password"),

		CardDAVURL:      viper.GetString("carddav_url"),
		CardDAVUsername: viper.GetString("carddav_username"),
		CardDAVPassword: viper.GetString("carddav_password"),

		PhotoGatewayURL:   viper.GetString("photo_gateway_url"),
		PhotoGatewayToken: viper.GetString("photo_gateway_token"),
		HARPath:           viper.GetString("whatsapp_har"),

		CountryCode: viper.GetString("country_code"),

		PhotoConcurrency: viper.GetInt("photo_concurrency"),
		PhotoTimeout:     viper.GetDuration("photo_timeout"),
		PhotoBackoff:     viper.GetDuration("photo_backoff"),

		LogLevel:  viper.GetString("log_level"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.CountryCode == "" {
		config.CountryCode = normalize.DefaultCountryCode
	}
	if config.PhotoConcurrency == 0 {
		config.PhotoConcurrency = photos.DefaultConcurrency
	}
	if config.PhotoTimeout == 0 {
		config.PhotoTimeout = photos.DefaultTimeout
	}
	if config.PhotoBackoff == 0 {
		config.PhotoBackoff = photos.DefaultBackoff
	}

	return config, nil
}

// loadEnvFiles loads .env files from the current directory. Missing files
// are fine; an existing environment variable is never overridden.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
