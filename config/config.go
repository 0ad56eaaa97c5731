package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	TreeSourceBackend = "backend"
	TreeSourceLocal   = "local"
)

// configCacheEntry holds cached configuration with metadata
type configCacheEntry struct {
	config  *Config
	modTime time.Time
}

var (
	configCache = make(map[string]*configCacheEntry)
	cacheMutex  sync.RWMutex
)

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	TopK    int           `mapstructure:"top_k"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version      string         `mapstructure:"version"`
	Theme        string         `mapstructure:"theme"`
	LogLevel     string         `mapstructure:"log_level"`
	RootDir      string         `mapstructure:"root_dir"`
	TreeSource   string         `mapstructure:"tree_source"`
	ListenAddr   string         `mapstructure:"listen_addr"`
	DisplayDepth int            `mapstructure:"display_depth"`
	Ignore       []string       `mapstructure:"ignore"`
	Backend      *BackendConfig `mapstructure:"backend"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:      "0.3.0",
	Theme:        "dracula",
	LogLevel:     "info",
	RootDir:      ".",
	TreeSource:   TreeSourceBackend,
	ListenAddr:   "127.0.0.1:8080",
	DisplayDepth: 0,
	Backend: &BackendConfig{
		BaseURL: "http://localhost:8765",
		Timeout: 2 * time.Minute,
		TopK:    20,
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config *Config

	setDefaults()
	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		viper.SetConfigName("codai-scope-config")
		viper.AddConfigPath(cwd)

		// Support both JSON and YAML formats
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigType("json")
			// Missing file means defaults.
			_ = viper.ReadInConfig()
		}
	}

	if rootCmd != nil {
		bindFlags(rootCmd)
	}

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Backend == nil || c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if c.Backend.TopK <= 0 {
		return fmt.Errorf("backend.top_k must be positive, got %d", c.Backend.TopK)
	}
	if c.TreeSource != TreeSourceBackend && c.TreeSource != TreeSourceLocal {
		return fmt.Errorf("tree_source must be %q or %q, got %q", TreeSourceBackend, TreeSourceLocal, c.TreeSource)
	}
	return nil
}

// SlogLevel maps log_level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("root_dir", DefaultConfig.RootDir)
	viper.SetDefault("tree_source", DefaultConfig.TreeSource)
	viper.SetDefault("listen_addr", DefaultConfig.ListenAddr)
	viper.SetDefault("display_depth", DefaultConfig.DisplayDepth)
	viper.SetDefault("ignore", DefaultConfig.Ignore)
	viper.SetDefault("backend.base_url", DefaultConfig.Backend.BaseURL)
	viper.SetDefault("backend.timeout", DefaultConfig.Backend.Timeout)
	viper.SetDefault("backend.top_k", DefaultConfig.Backend.TopK)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "CODAI_SCOPE_THEME")
	_ = viper.BindEnv("log_level", "CODAI_SCOPE_LOG_LEVEL")
	_ = viper.BindEnv("root_dir", "CODAI_SCOPE_ROOT_DIR")
	_ = viper.BindEnv("tree_source", "CODAI_SCOPE_TREE_SOURCE")
	_ = viper.BindEnv("listen_addr", "CODAI_SCOPE_LISTEN_ADDR")
	_ = viper.BindEnv("display_depth", "CODAI_SCOPE_DISPLAY_DEPTH")
	_ = viper.BindEnv("backend.base_url", "CODAI_SCOPE_BASE_URL")
	_ = viper.BindEnv("backend.timeout", "CODAI_SCOPE_TIMEOUT")
	_ = viper.BindEnv("backend.top_k", "CODAI_SCOPE_TOP_K")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("theme", flags.Lookup("theme"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = viper.BindPFlag("root_dir", flags.Lookup("root_dir"))
	_ = viper.BindPFlag("tree_source", flags.Lookup("tree_source"))
	_ = viper.BindPFlag("listen_addr", flags.Lookup("listen_addr"))
	_ = viper.BindPFlag("display_depth", flags.Lookup("display_depth"))
	_ = viper.BindPFlag("ignore", flags.Lookup("ignore"))
	_ = viper.BindPFlag("backend.base_url", flags.Lookup("base_url"))
	_ = viper.BindPFlag("backend.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("backend.top_k", flags.Lookup("top_k"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Chroma theme used to highlight excerpts (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: 'debug', 'info', 'warn' or 'error'.")
	rootCmd.PersistentFlags().String("root_dir", DefaultConfig.RootDir, "Project root used when the tree is loaded from the local filesystem.")
	rootCmd.PersistentFlags().String("tree_source", DefaultConfig.TreeSource, "Where the project tree comes from: 'backend' or 'local'.")
	rootCmd.PersistentFlags().String("listen_addr", DefaultConfig.ListenAddr, "Address the serve subcommand listens on.")
	rootCmd.PersistentFlags().Int("display_depth", DefaultConfig.DisplayDepth, "Maximum depth of the rendered tree, 0 for unlimited.")
	rootCmd.PersistentFlags().StringSlice("ignore", DefaultConfig.Ignore, "Extra ignore globs applied when the tree is loaded locally.")

	rootCmd.PersistentFlags().String("base_url", DefaultConfig.Backend.BaseURL, "The base URL of the retrieval backend.")
	rootCmd.PersistentFlags().Duration("timeout", DefaultConfig.Backend.Timeout, "Timeout for a single backend call.")
	rootCmd.PersistentFlags().Int("top_k", DefaultConfig.Backend.TopK, "Number of results requested from the search channel.")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

// LoadConfigWithCache loads configuration, reusing the parsed result while the file is unchanged.
func LoadConfigWithCache(rootCmd *cobra.Command, cwd string) (*Config, error) {
	configFilePath := findConfigFile(cwd)
	if configFilePath == "" {
		return LoadConfigs(rootCmd, cwd)
	}

	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		return LoadConfigs(rootCmd, cwd)
	}

	cacheMutex.RLock()
	if cached, exists := configCache[configFilePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return cached.config, nil
	}
	cacheMutex.RUnlock()

	config, err := LoadConfigs(rootCmd, cwd)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	configCache[configFilePath] = &configCacheEntry{
		config:  config,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return config, nil
}

// ClearConfigCache clears all cached configuration files
func ClearConfigCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	configCache = make(map[string]*configCacheEntry)
}

func findConfigFile(cwd string) string {
	if cfgFile != "" {
		return cfgFile
	}
	for _, name := range []string{"codai-scope-config.yaml", "codai-scope-config.yml", "codai-scope-config.json"} {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
