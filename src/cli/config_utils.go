package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"semanticdb-lsp/src/config"
	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/utils/configloader"
)

// Overrides holds the flags that take precedence over the config file.
// Nil fields leave the configured value alone.
type Overrides struct {
	SemanticDBDir *string
	Watch         *bool
	MetricsAddr   *string
}

// overridesFromFlags collects only the flags the user actually set
func overridesFromFlags(cmd *cobra.Command) Overrides {
	var o Overrides
	flags := cmd.Flags()
	if flags.Changed(FlagSemanticDB) {
		o.SemanticDBDir = &semanticDBDir
	}
	if flags.Changed(FlagWatch) {
		o.Watch = &watch
	}
	if flags.Changed(FlagMetricsAddr) {
		o.MetricsAddr = &metricsAddr
	}
	return o
}

func (o Overrides) apply(cfg *config.Config) {
	if o.SemanticDBDir != nil {
		if expanded, err := common.ExpandPath(*o.SemanticDBDir); err == nil {
			cfg.Index.SemanticDBDir = expanded
		} else {
			cfg.Index.SemanticDBDir = *o.SemanticDBDir
		}
	}
	if o.Watch != nil {
		cfg.Index.Watch = *o.Watch
	}
	if o.MetricsAddr != nil {
		cfg.Metrics.Addr = *o.MetricsAddr
	}
}

// LoadConfigForServer loads configuration for the long-running server
func LoadConfigForServer(configPath string, overrides Overrides) *config.Config {
	cfg := configloader.LoadForServer(configPath)
	overrides.apply(cfg)
	return cfg
}

// LoadConfigForCLI loads configuration for one-shot commands, which never
// watch the directory or serve metrics
func LoadConfigForCLI(configPath string, overrides Overrides) *config.Config {
	cfg := configloader.LoadForCLI(configPath)
	overrides.Watch = nil
	overrides.MetricsAddr = nil
	overrides.apply(cfg)
	return cfg
}

// InitConfig writes the default configuration to configPath, or to the
// default location when configPath is empty
func InitConfig(w io.Writer, configPath string, force bool) error {
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --%s to overwrite)", path, FlagForce)
	}
	if err := config.GenerateDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote default configuration to %s\n", path)
	return nil
}

// parsePosition parses zero-based line and character arguments
func parsePosition(lineArg, characterArg string) (int32, int32, error) {
	line, err := strconv.ParseInt(lineArg, 10, 32)
	if err != nil || line < 0 {
		return 0, 0, common.CreateValidationErrorForPosition(fmt.Sprintf("invalid line %q", lineArg))
	}
	character, err := strconv.ParseInt(characterArg, 10, 32)
	if err != nil || character < 0 {
		return 0, 0, common.CreateValidationErrorForPosition(fmt.Sprintf("invalid character %q", characterArg))
	}
	return int32(line), int32(character), nil
}
