package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/diskmanager/internal/breakdown"
	"github.com/idelchi/diskmanager/internal/diskstat"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// Command builds the root command. Each call returns an independent command with its own
// configuration layer.
//
//nolint:funlen // Flag definitions
func (c CLI) Command() *cobra.Command {
	var configFile string

	v := viper.New()

	cmd := &cobra.Command{
		Use:   "diskmanager [flags] [path]",
		Short: "Manage and visualize your disk usage",
		Long: heredoc.Doc(`
			diskmanager reports the size, file count and directory count of a directory tree.

			The tree is traversed concurrently, one goroutine per sub-directory. Directories that
			cannot be read count as empty and are reported as degraded.

			Symbolic links below the root are not followed: a link counts as neither a file nor a
			directory and adds no bytes. The root path itself is resolved before traversal.

			Positional Arguments:
			  path                   Directory to analyze. Defaults to the current directory.

			Modes:
			  By default the rolled-up statistic of the directory is printed once.
			  --web serves the results over HTTP while they are computed.
			  --tui opens an interactive tree browser in the terminal.
			  --file prints the metadata of a single file instead.

			Configuration:
			  Every flag can also be set in a YAML file (--config, or diskmanager.yaml in the
			  user configuration directory or the working directory) or through an environment
			  variable such as DISKMANAGER_COUNT=true. Flags take precedence.

			The '--init' flag prints a zsh function that pipes sub-folders into 'fzf'.
		`),
		Example: heredoc.Doc(`
			diskmanager ~/projects --count
			diskmanager -o json --subfolders .
			diskmanager --web --addr localhost:9000 /var
			diskmanager --breakdown -x .go,.md --top 5
		`),
		Args:          cobra.MaximumNArgs(1),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, cmd.Flags(), configFile); err != nil {
				return err
			}

			options, err := resolve(v, args)
			if err != nil {
				return err
			}

			return logic(cmd.Context(), options, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.Flags()
	flags.SortFlags = false

	flags.StringP("rootdir", "d", "", "Directory path to start the recursive lookup on disk usage")
	flags.StringP("file", "f", "", "File path for file metadata lookup")
	flags.BoolP("log", "l", false, "Log the names of analyzed directories (down to a depth of 3)")
	flags.BoolP("count", "c", false, "Count the files and directories accounted for")
	flags.Bool("subfolders", false, "Include the statistics of each sub-folder")
	flags.StringP("output", "o", "table", "Output format: table, json, yaml or list")
	flags.BoolP("web", "w", false, "Start the HTTP server as user interface")
	flags.String("addr", "localhost:8080", "Listen address of the HTTP server")
	flags.BoolP("tui", "t", false, "Start the interactive terminal viewer")
	flags.Int("name-depth", diskstat.DefaultNameDepth, "Initial depth of the browsable name tree")
	flags.Int("concurrency", diskstat.DefaultConcurrency(), "Maximum number of concurrent filesystem calls")
	flags.Bool("breakdown", false, "Add a breakdown by file extension and the largest files")
	flags.Int("top", breakdown.DefaultTopN, "Number of top extensions and files in the breakdown")
	flags.StringSliceP(
		"ext",
		"x",
		[]string{},
		"File suffixes to include in the breakdown (e.g., .go,.md). Use '!' prefix to exclude (e.g., !.log)",
	)
	flags.StringSliceP("exclude", "e", DefaultExcludes, "Regex patterns to exclude from the breakdown")
	flags.String("min-size", "0KB", "Minimum file size in the breakdown (e.g., 1KB)")
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	flags.Bool("debug", false, "Enable debug output")
	flags.BoolP("init", "i", false, "Output init script for shell usage")

	return cmd
}
