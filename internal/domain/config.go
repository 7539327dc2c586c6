package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Backends     BackendsConfig     `mapstructure:"backends"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`       // release, debug
	QueueSize int    `mapstructure:"queue_size"` // pending downloads accepted by the server
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	DestDir    string   `mapstructure:"dest_dir"`
	VFAT       bool     `mapstructure:"vfat"`
	Protocols  []string `mapstructure:"protocols"`
	SubLang    string   `mapstructure:"sublang"`
	MaxBitrate string   `mapstructure:"max_bitrate"` // best, worst or kbit/s
}

// BackendsConfig locates the external programs that move the media bytes
type BackendsConfig struct {
	RTMPDumpPath    string   `mapstructure:"rtmpdump_path"`
	AdobeHDSCommand []string `mapstructure:"adobehds_command"`
	YTDLPPath       string   `mapstructure:"ytdlp_path"`
}

// HTTPConfig contains settings of the metadata fetcher
type HTTPConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
}

// HistoryConfig contains download history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// Version of yle-dl reported to servers and by the CLI
const Version = "2.9.0"

// DefaultProtocols is the transport preference order used when the
// operator does not request any protocols.
var DefaultProtocols = []string{"hds", "hds:youtubedl", "rtmp"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			Mode:      "release",
			QueueSize: 16,
		},
		Download: DownloadConfig{
			DestDir:    "",
			VFAT:       false,
			Protocols:  nil,
			SubLang:    "all",
			MaxBitrate: "best",
		},
		Backends: BackendsConfig{
			RTMPDumpPath:    "rtmpdump",
			AdobeHDSCommand: []string{"php", "/usr/local/share/yle-dl/AdobeHDS.php"},
			YTDLPPath:       "yt-dlp",
		},
		HTTP: HTTPConfig{
			UserAgent:         "yle-dl/" + Version,
			Timeout:           30 * time.Second,
			CacheTTL:          time.Minute,
			RequestsPerSecond: 0,
		},
		History: HistoryConfig{
			Enabled:      false,
			DatabasePath: "$HOME/.yle-dl/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
