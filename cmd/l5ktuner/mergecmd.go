package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prochot/L5K-Tuner/l5k"
	"github.com/prochot/L5K-Tuner/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <old.l5k> <new.l5k>",
	Short: "Compare two L5K exports and optionally merge the differences",
	Long: `Merge compares the entities of two exports of the same controller.
Without --apply it only lists what the newer export adds and removes.
With --apply the differences are folded into the older model and the
merged project is written out.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().Bool("apply", false, "Apply the differences to the old model and export it")
	mergeCmd.Flags().StringP("output", "o", "-", "Output path for the merged export, or - for stdout")
}

func runMerge(cmd *cobra.Command, args []string) error {
	oldRes, err := parseFile(args[0])
	if err != nil {
		return err
	}
	newRes, err := parseFile(args[1])
	if err != nil {
		return err
	}
	printCorrections(oldRes)
	printCorrections(newRes)

	d := merge.Compare(oldRes.Project, newRes.Project)
	if d.IsEmpty() {
		fmt.Fprintln(os.Stdout, "No differences.")
		return nil
	}

	for _, k := range d.Added {
		fmt.Fprintf(os.Stdout, "+ %s\n", k)
	}
	for _, k := range d.Removed {
		fmt.Fprintf(os.Stdout, "- %s\n", k)
	}

	apply, _ := cmd.Flags().GetBool("apply")
	if !apply {
		return nil
	}

	if err := merge.Apply(oldRes.Project, newRes.Project, d); err != nil {
		return fmt.Errorf("applying differences: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	return writeOutput(output, oldRes.ExportWhitelist(l5k.SelectAll(oldRes.Project)))
}
