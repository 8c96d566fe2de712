package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stratum/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Extract footprints for every storey in a manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			jsonLogs, _ := cmd.Flags().GetBool("json")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			watch, _ := cmd.Flags().GetBool("watch")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			trace, _ := cmd.Flags().GetBool("trace")
			return c.app.Run(cmd.Context(), args[0], app.RunOptions{
				ConfigPath:  configPath(cmd),
				JSON:        jsonLogs,
				MetricsAddr: metricsAddr,
				Watch:       watch,
				NoCache:     noCache,
				Trace:       trace,
			})
		},
	}
	cmd.Flags().Bool("json", false, "Write logs as JSON")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolP("watch", "w", false, "Rerun when the manifest or configuration changes")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the result cache and keep artifacts in memory only")
	cmd.Flags().Bool("trace", false, "Log every finished span")
	return cmd
}
