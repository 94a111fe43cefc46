// Command hackscore serves the scoring API and offers offline tooling around it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hackscore",
		Short: "Weighted rubric scoring and leaderboards for hackathons",
		Long: `hackscore turns judge evaluations into weighted team scores and ranked
challenge leaderboards. Run "hackscore serve" for the HTTP service, or
"hackscore score" to rank a YAML snapshot offline.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newScoreCmd(), newLoadtestCmd())
	return root
}
