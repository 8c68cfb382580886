package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script.yaml>...",
	Short: "Check that scripts replay cleanly",
	Long: `Parses each script and replays it on a throwaway document with invariant checks,
reporting every script that fails to parse or does not end as expected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(cmd)
		if err != nil {
			return err
		}

		var errs []error
		for _, path := range args {
			ed, _, err := play(cmd, s, path)
			if err == nil {
				err = ed.State().Current.Validate()
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid! ✅\n", path)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
