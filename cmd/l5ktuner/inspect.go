package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.l5k>",
	Short: "Parse an L5K file and report what it contains",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	res, err := parseFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Controller:   %s\n", res.ControllerName)
	fmt.Fprintf(os.Stdout, "Data types:   %d\n", res.Project.DataTypes.Len())
	fmt.Fprintf(os.Stdout, "Instructions: %d\n", res.Project.Instructions.Len())
	fmt.Fprintf(os.Stdout, "Tags:         %d\n", res.Project.Tags.Len())
	fmt.Fprintf(os.Stdout, "Programs:     %d\n", res.Project.Programs.Len())

	if res.DroppedStatements > 0 {
		fmt.Fprintf(os.Stdout, "Dropped statements: %d\n", res.DroppedStatements)
	}
	if len(res.Corrections) > 0 {
		fmt.Fprintln(os.Stdout, "\nCorrections:")
		for _, c := range res.Corrections {
			fmt.Fprintf(os.Stdout, "  %s\n", c)
		}
	}
	return nil
}
