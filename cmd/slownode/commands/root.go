package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jianzi123/slow-node/pkg/log"
)

var (
	version   string
	commit    string
	buildDate string
)

func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// ExitCodeError lets a command choose the process exit code. An empty
// message means the command already printed its outcome; Execute then stays
// silent and only the code is propagated.
type ExitCodeError struct {
	Code int
	Msg  string
}

func (e *ExitCodeError) Error() string {
	return e.Msg
}

var rootCmd = &cobra.Command{
	Use:   "slownode",
	Short: "Slow node detector for accelerator clusters",
	Long: `Finds slow or broken nodes in multi-node accelerator clusters by running
an allreduce bandwidth benchmark over node subsets. Supports recursive
bisection, pairwise testing with per-node statistics, and offline outlier
analysis of past runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Debug: debug, JSONOutput: jsonLogs})
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil && err.Error() != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(isolateCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write structured JSON logs instead of console logs")
}
