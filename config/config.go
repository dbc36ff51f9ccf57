// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned by Validate when the bot cannot start
// because the token or the chat id is not configured.
var ErrMissingCredentials = errors.New("BOT_TOKEN and CHAT_ID environment variables must be set")

// DefaultUserAgent is a mobile Chrome UA accepted by the media source.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/129.0.0.0 Mobile Safari/537.36"

type Bot struct {
	Token            string        `mapstructure:"token" yaml:"token"`
	ChatID           int64         `mapstructure:"chat_id" yaml:"chat_id"`
	SourceURL        string        `mapstructure:"source_url" yaml:"source_url"`
	Referer          string        `mapstructure:"referer" yaml:"referer"`
	Origin           string        `mapstructure:"origin" yaml:"origin"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxSendBytes     int64         `mapstructure:"max_send_bytes" yaml:"max_send_bytes"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	DownloadDir      string        `mapstructure:"download_dir" yaml:"download_dir"`
	YtDlpPath        string        `mapstructure:"ytdlp_path" yaml:"ytdlp_path"`
	KeepFiles        bool          `mapstructure:"keep_files" yaml:"keep_files"`
}

type Web struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// SleepTimeout is in seconds; <= 0 disables the idle monitor.
	SleepTimeout  int           `mapstructure:"sleep_timeout" yaml:"sleep_timeout"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
}

type Database struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

type Setup struct {
	Requirements string `mapstructure:"requirements" yaml:"requirements"`
	Python       string `mapstructure:"python" yaml:"python"`
	Browser      string `mapstructure:"browser" yaml:"browser"`
	PluginRepo   string `mapstructure:"plugin_repo" yaml:"plugin_repo"`
	PluginDir    string `mapstructure:"plugin_dir" yaml:"plugin_dir"`
}

type Archive struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Host       string `mapstructure:"host" yaml:"host"`
	User       string `mapstructure:"user" yaml:"user"`
	Password   string `mapstructure:"password" yaml:"password"`
	KeyFile    string `mapstructure:"key_file" yaml:"key_file"`
	KnownHosts string `mapstructure:"known_hosts" yaml:"known_hosts"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the complete application configuration.
type Config struct {
	Bot      Bot      `mapstructure:"bot" yaml:"bot"`
	Web      Web      `mapstructure:"web" yaml:"web"`
	Database Database `mapstructure:"database" yaml:"database"`
	Setup    Setup    `mapstructure:"setup" yaml:"setup"`
	Archive  Archive  `mapstructure:"archive" yaml:"archive"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Language string   `mapstructure:"language" yaml:"language"`
}

// Defaults returns the default key/value set used by LoadConfig.
func Defaults() map[string]any {
	return map[string]any{
		"bot.token":             "",
		"bot.chat_id":           0,
		"bot.source_url":        "https://hanime.tv/browse/random",
		"bot.referer":           "https://hanime.tv/",
		"bot.origin":            "https://player.hanime.tv",
		"bot.user_agent":        DefaultUserAgent,
		"bot.max_send_bytes":    int64(2 * 1024 * 1024 * 1024),
		"bot.progress_interval": 2 * time.Second,
		"bot.fetch_timeout":     20 * time.Second,
		"bot.download_dir":      filepath.Join(os.TempDir(), "hanime_bot_downloads"),
		"bot.ytdlp_path":        "yt-dlp",
		"bot.keep_files":        false,
		"web.host":              "0.0.0.0",
		"web.port":              5000,
		"web.sleep_timeout":     600,
		"web.check_interval":    30 * time.Second,
		"database.type":         "sqlite",
		"database.dsn":          "./mediabot.db",
		"setup.requirements":    "requirements.txt",
		"setup.python":          "python3",
		"setup.browser":         "chromium",
		"setup.plugin_repo":     "https://github.com/cynthia2006/hanime-tv-plugin.git",
		"setup.plugin_dir":      filepath.Join(os.TempDir(), "hanime-tv-plugin"),
		"archive.enabled":       false,
		"archive.host":          "",
		"archive.user":          "",
		"archive.password":      "",
		"archive.key_file":      "",
		"archive.known_hosts":   "",
		"archive.dir":           "mediabot",
		"log.level":             "info",
		"log.format":            "text",
		"language":              "en",
	}
}

// legacyEnv maps config keys to the bare environment variables used by the
// container deployment. The MEDIABOT_ prefixed form always wins.
var legacyEnv = map[string]string{
	"bot.token":         "BOT_TOKEN",
	"bot.chat_id":       "CHAT_ID",
	"web.port":          "PORT",
	"web.sleep_timeout": "SLEEP_TIMEOUT",
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Mediabot")
		default:
			configDir = "/etc/mediabot"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "mediabot")
	}

	return filepath.Join(configDir, "mediabot.yaml"), nil
}

// LoadConfig resolves T from defaults, the first mediabot.yaml found (or the
// explicit file), MEDIABOT_* and legacy env vars, and the flags of cmd.
//
// When no file is found the returned error is viper.ConfigFileNotFoundError
// and the value is still fully populated from the other sources.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("mediabot")
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return c, err
		}
		notFound = err
	}

	v.SetEnvPrefix("mediabot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(false)
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := "MEDIABOT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return c, err
		}
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, notFound
}

// WriteConfigFile marshals c as YAML into the user (or system) config path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigFileTo(c, path)
}

// WriteConfigFileTo marshals c as YAML into path, creating parent directories.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file carries the bot token.
	return os.WriteFile(path, data, 0o600)
}

// ValidateBot checks the settings the bot worker cannot run without.
func (c *Config) ValidateBot() error {
	if strings.TrimSpace(c.Bot.Token) == "" || c.Bot.ChatID == 0 {
		return ErrMissingCredentials
	}
	return nil
}

// ValidateWeb checks the web server settings.
func (c *Config) ValidateWeb() error {
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}
	return nil
}

// Addr is the listen address of the web server.
func (w Web) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}
