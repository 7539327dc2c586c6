package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/yle-dl-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// If config path is provided, use it
	if configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.yle-dl")
		v.AddConfigPath(".")
	}

	// Read environment variables, e.g. YLEDL_DOWNLOAD_DEST_DIR
	v.SetEnvPrefix("YLEDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes AutomaticEnv see keys that are absent from the file
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"download.dest_dir", "download.vfat", "download.protocols", "download.sublang", "download.max_bitrate",
		"backends.rtmpdump_path", "backends.adobehds_command", "backends.ytdlp_path",
		"http.user_agent", "http.timeout", "http.cache_ttl", "http.requests_per_second",
		"history.enabled", "history.database_path",
		"server.host", "server.port", "server.mode", "server.queue_size",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.DestDir = expandPath(config.Download.DestDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Backends.RTMPDumpPath = expandPath(config.Backends.RTMPDumpPath)
	config.Backends.YTDLPPath = expandPath(config.Backends.YTDLPPath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Replace $HOME even when HOME is unset in the environment
	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.QueueSize < 1 {
		return fmt.Errorf("server queue size must be at least 1")
	}

	if _, err := domain.ParseBitrate(config.Download.MaxBitrate); err != nil {
		return fmt.Errorf("invalid max bitrate: %w", err)
	}

	if config.Download.SubLang == "" {
		config.Download.SubLang = domain.SubLangAll
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	if len(config.Backends.AdobeHDSCommand) == 0 {
		return fmt.Errorf("adobehds command not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Keys follow the mapstructure tags so LoadConfig reads the file back
	values := map[string]any{
		"server.host":               config.Server.Host,
		"server.port":               config.Server.Port,
		"server.mode":               config.Server.Mode,
		"server.queue_size":         config.Server.QueueSize,
		"download.dest_dir":         config.Download.DestDir,
		"download.vfat":             config.Download.VFAT,
		"download.protocols":        config.Download.Protocols,
		"download.sublang":          config.Download.SubLang,
		"download.max_bitrate":      config.Download.MaxBitrate,
		"backends.rtmpdump_path":    config.Backends.RTMPDumpPath,
		"backends.adobehds_command": config.Backends.AdobeHDSCommand,
		"backends.ytdlp_path":       config.Backends.YTDLPPath,
		"http.user_agent":           config.HTTP.UserAgent,
		"http.timeout":              config.HTTP.Timeout.String(),
		"http.cache_ttl":            config.HTTP.CacheTTL.String(),
		"http.requests_per_second":  config.HTTP.RequestsPerSecond,
		"history.enabled":           config.History.Enabled,
		"history.database_path":     config.History.DatabasePath,
		"notification.enabled":      config.Notification.Enabled,
		"notification.sound":        config.Notification.Sound,
		"notification.method":       config.Notification.Method,
		"logging.level":             config.Logging.Level,
		"logging.format":            config.Logging.Format,
		"logging.output_path":       config.Logging.OutputPath,
	}
	for key, value := range values {
		v.Set(key, value)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
