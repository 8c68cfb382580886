package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script.yaml>",
	Short: "Export the tree built by a script as a Mermaid diagram",
	Long: `Replays a script and outputs a Mermaid diagram (graph TD) of the resulting tree.
With --overlay, the holders of exclusive flags and the drop target are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overlay, _ := cmd.Flags().GetBool("overlay")

		s, err := newStack(cmd)
		if err != nil {
			return err
		}
		ed, _, err := play(cmd, s, args[0])
		if err != nil {
			return err
		}

		state := ed.State()
		if !overlay {
			state = nil
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(ed.State().Current, state))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("overlay", false, "Highlight flag holders and the drop target")
}
