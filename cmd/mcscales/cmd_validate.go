package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pdf>",
	Short: "Check that a directory is a complete MCscales set",
	Args:  positional(cobra.ExactArgs(1)),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := openSet(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
