package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/stratum/internal/app"
	"go.trai.ch/stratum/internal/ui/style"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persistent artifact cache",
	}

	cmd.AddCommand(c.newCacheStatsCmd())
	cmd.AddCommand(c.newCacheClearCmd())

	return cmd
}

func (c *CLI) newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of persisted entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := c.app.CacheStats(cmd.Context(), configPath(cmd))
			if err != nil {
				return err
			}
			renderStoreReports(cmd.OutOrStdout(), reports)
			return nil
		},
	}
}

func (c *CLI) newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every persisted entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.CacheClear(cmd.Context(), configPath(cmd)); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), style.Good.Render(style.Check+" cache cleared"))
			return nil
		},
	}
}

func renderStoreReports(w io.Writer, reports []app.StoreReport) {
	_, _ = fmt.Fprintln(w, style.Heading.Render("Persistent cache"))
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "  %s%s  %s\n",
			style.Label.Render(r.Name),
			style.Value.Render(fmt.Sprintf("%d entries, %s", r.Stats.Entries, formatBytes(r.Stats.Bytes))),
			style.Muted.Render(r.Dir),
		)
	}
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
