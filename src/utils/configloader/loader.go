package configloader

import (
	"os"

	"semanticdb-lsp/src/config"
	"semanticdb-lsp/src/internal/common"
)

// LoadOrDefault loads configPath, then the default config file, then the
// built-in defaults. A file that fails to load is reported and skipped.
func LoadOrDefault(configPath string) *config.Config {
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err == nil {
			return loaded
		}
		common.CLILogger.Warn("Failed to load config from %s, using defaults: %v", configPath, err)
	}

	defaultPath := config.GetDefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		loaded, err := config.LoadConfig(defaultPath)
		if err == nil {
			return loaded
		}
		common.CLILogger.Warn("Failed to load default config from %s: %v", defaultPath, err)
	}

	common.CLILogger.Debug("Falling back to default config")
	return config.GetDefaultConfig()
}

// LoadForServer loads configuration for a long-running server and applies
// its log level to the global loggers.
func LoadForServer(configPath string) *config.Config {
	cfg := LoadOrDefault(configPath)
	applyLogLevel(cfg)
	return cfg
}

// LoadForCLI loads configuration for one-shot commands. Watching and the
// metrics endpoint are disabled since the process exits after one query.
func LoadForCLI(configPath string) *config.Config {
	cfg := LoadOrDefault(configPath)
	applyLogLevel(cfg)

	cfg.Index.Watch = false
	if cfg.Metrics != nil {
		cfg.Metrics.Addr = ""
	}
	return cfg
}

func applyLogLevel(cfg *config.Config) {
	level, err := common.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		common.CLILogger.Warn("Ignoring log level %q: %v", cfg.LogLevel, err)
		return
	}
	common.SetGlobalLevel(level)
}
