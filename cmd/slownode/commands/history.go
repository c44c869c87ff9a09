package commands

import (
	"github.com/spf13/cobra"

	"github.com/jianzi123/slow-node/pkg/archive"
	"github.com/jianzi123/slow-node/pkg/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived detection runs",
	Long:  "List past runs from the local archive, or show one run's full report.",
	RunE:  runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report for one archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.PersistentFlags().String("output-dir", "results", "Base directory holding the run archive")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	format, _ := cmd.Flags().GetString("output")

	arch, err := archive.Open(outputDir)
	if err != nil {
		return err
	}
	defer arch.Close()

	summaries, err := arch.List()
	if err != nil {
		return err
	}
	return output.PrintHistory(summaries, format)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	format, _ := cmd.Flags().GetString("output")

	arch, err := archive.Open(outputDir)
	if err != nil {
		return err
	}
	defer arch.Close()

	rep, err := arch.Get(args[0])
	if err != nil {
		return err
	}
	return output.PrintReport(rep, format)
}
