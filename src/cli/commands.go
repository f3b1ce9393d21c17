package cli

import (
	"github.com/spf13/cobra"

	"semanticdb-lsp/src/internal/common"
	versionpkg "semanticdb-lsp/src/internal/version"
)

// CLI Constants
const (
	CmdServe          = "serve"
	CmdDecode         = "decode"
	CmdQuery          = "query"
	CmdStats          = "stats"
	CmdConfig         = "config"
	CmdConfigInit     = "init"
	CmdVersion        = "version"
	FlagConfig        = "config"
	FlagSemanticDB    = "semanticdb"
	FlagWatch         = "watch"
	FlagMetricsAddr   = "metrics-addr"
	FlagKind          = "kind"
	FlagNoDeclaration = "no-declaration"
	FlagForce         = "force"
	FlagVerbose       = "verbose"
)

// Query kinds accepted by --kind
const (
	QueryKindReferences = "references"
	QueryKindDefinition = "definition"
	QueryKindHighlight  = "highlight"
)

// CLI Variables
var (
	configPath    string
	semanticDBDir string
	watch         bool
	metricsAddr   string
	queryKind     string
	noDeclaration bool
	force         bool
	verbose       bool
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "semanticdb-lsp",
	Short: "semanticdb-lsp - a language server answering navigation queries from SemanticDB output",
	Long: `semanticdb-lsp indexes the semantic documents a compiler emits and serves
go-to-definition, find-references and document-highlight requests over
the Language Server Protocol on stdin/stdout.

QUICK START:
  semanticdb-lsp serve --semanticdb target/semanticdb   # Serve an LSP session on stdio
  semanticdb-lsp query file:///ws/A.scala 10 4          # One-off reference query

AVAILABLE COMMANDS:
    semanticdb-lsp serve                   # Run the language server on stdio
    semanticdb-lsp query                   # Answer one query against the index
    semanticdb-lsp stats                   # Show index statistics
    semanticdb-lsp decode <file>           # Dump the messages of a framed LSP stream
    semanticdb-lsp config init             # Write the default configuration file
    semanticdb-lsp version                 # Show version information

Use 'semanticdb-lsp <command> --help' for detailed command information.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command definitions
var (
	serveCmd = &cobra.Command{
		Use:   CmdServe,
		Short: "Run the language server on stdio",
		Long: `Load every semantic document under the configured directory and serve
an LSP session on stdin/stdout until the client sends exit.

Examples:
  semanticdb-lsp serve --semanticdb target/semanticdb
  semanticdb-lsp serve --watch --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	queryCmd = &cobra.Command{
		Use:   "query <uri> <line> <character>",
		Short: "Answer one navigation query",
		Long: `Load the index and print the answer to one query as JSON.
Lines and characters are zero-based.

Examples:
  semanticdb-lsp query file:///ws/A.scala 10 4
  semanticdb-lsp query file:///ws/A.scala 10 4 --kind definition
  semanticdb-lsp query file:///ws/A.scala 10 4 --no-declaration`,
		Args: cobra.ExactArgs(3),
		RunE: runQueryCmd,
	}

	statsCmd = &cobra.Command{
		Use:   CmdStats,
		Short: "Show index statistics",
		Long:  `Load the index and print the number of documents, symbols and occurrences.`,
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode <file>",
		Short: "Dump the messages of a framed LSP stream",
		Long: `Split a captured Content-Length framed stream into messages and print one
line per message. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecodeCmd,
	}

	configCmd = &cobra.Command{
		Use:   CmdConfig,
		Short: "Manage the configuration file",
		RunE:  runConfigCmd,
	}

	configInitCmd = &cobra.Command{
		Use:   CmdConfigInit,
		Short: "Write the default configuration file",
		Long: `Write the built-in configuration to --config, or to the default location
when no path is given. An existing file is kept unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: runConfigInitCmd,
	}

	versionCmd = &cobra.Command{
		Use:   CmdVersion,
		Short: "Show version information",
		Long: `Display version information for semanticdb-lsp.

Examples:
  semanticdb-lsp version              # Show version number
  semanticdb-lsp version --verbose    # Show detailed build information`,
		RunE: runVersionCmd,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional, will use defaults if not provided)")

	// Index source flags shared by every command that loads the index
	for _, cmd := range []*cobra.Command{serveCmd, queryCmd, statsCmd} {
		cmd.Flags().StringVarP(&semanticDBDir, FlagSemanticDB, "d", "", "Directory containing semantic documents (overrides config)")
	}

	serveCmd.Flags().BoolVarP(&watch, FlagWatch, "w", false, "Reindex semantic documents when they change on disk")
	serveCmd.Flags().StringVar(&metricsAddr, FlagMetricsAddr, "", "Serve prometheus metrics on this address")

	queryCmd.Flags().StringVarP(&queryKind, FlagKind, "k", QueryKindReferences, "Query kind: references, definition or highlight")
	queryCmd.Flags().BoolVar(&noDeclaration, FlagNoDeclaration, false, "Leave the definition out of reference results")

	configInitCmd.Flags().BoolVarP(&force, FlagForce, "f", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configInitCmd)

	versionCmd.Flags().BoolVarP(&verbose, FlagVerbose, "v", false, "Show detailed version information")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Command runner functions - these delegate to the extracted modules

func runServeCmd(cmd *cobra.Command, args []string) error {
	return RunServe(configPath, overridesFromFlags(cmd))
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	line, character, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return RunQuery(cmd.OutOrStdout(), configPath, overridesFromFlags(cmd), QueryRequest{
		Kind:               queryKind,
		URI:                args[0],
		Line:               line,
		Character:          character,
		IncludeDeclaration: !noDeclaration,
	})
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	return RunStats(cmd.OutOrStdout(), configPath, overridesFromFlags(cmd))
}

func runDecodeCmd(cmd *cobra.Command, args []string) error {
	return RunDecode(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args[0], configPath)
}

func runConfigCmd(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

func runConfigInitCmd(cmd *cobra.Command, args []string) error {
	return InitConfig(cmd.OutOrStdout(), configPath, force)
}

func runVersionCmd(cmd *cobra.Command, args []string) error {
	if verbose {
		common.CLILogger.Info("%s", versionpkg.GetFullVersionInfo())
		return nil
	}
	common.CLILogger.Info("semanticdb-lsp %s", versionpkg.GetVersion())
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
