package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/script"
)

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Replay a scripted editing session",
	Long: `Replays the steps of a script on a fresh document and prints the resulting tree.
Steps that expect an error code must be rejected with that code; the run stops at the
first step that ends otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")

		s, err := newStack(cmd)
		if err != nil {
			return err
		}
		ed, report, err := play(cmd, s, args[0])
		if ed == nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(struct {
				Report *script.Report `json:"report"`
				State  any            `json:"state"`
			}{report, ed.State()}); encErr != nil {
				return encErr
			}
			return err
		}

		if report != nil && !quiet {
			printReport(cmd, report)
		}
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}

		interactive := tui.IsInteractive(os.Stdout)
		if interactive {
			tui.PrintBanner(out)
		}
		render, err := tui.NewRenderer(interactive)
		if err != nil {
			return err
		}
		text, err := render(tui.Outline(ed.State()))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "Print the report and final state as JSON")
	runCmd.Flags().BoolP("quiet", "q", false, "Only report failures")
}

// play loads a script and replays it on a new document named after the file.
func play(cmd *cobra.Command, s *stack, path string) (*arbor.Editor, *script.Report, error) {
	sc, err := script.Load(path)
	if err != nil {
		return nil, nil, err
	}
	name := sc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ed := s.editor(name)
	player := script.NewPlayer(script.WithLogger(s.logger))
	report, err := player.Play(cmd.Context(), ed, sc)
	return ed, report, err
}

func printReport(cmd *cobra.Command, report *script.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		mark := "ok"
		if !res.OK {
			mark = "FAIL"
		}
		line := fmt.Sprintf("%-4s %3d %-12s", mark, res.Index, res.Op)
		if res.Code != "" {
			line += " " + string(res.Code)
		}
		if res.Comment != "" {
			line += "  # " + res.Comment
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}
