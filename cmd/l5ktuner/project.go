package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prochot/L5K-Tuner/snapshot"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Save and restore project snapshots",
	Long: `A snapshot captures the parsed project model together with the
current selection as checkbox states, so a tuning session can be resumed
later without re-deciding every entity.`,
}

var projectSaveCmd = &cobra.Command{
	Use:   "save <file.l5k> <snapshot.json>",
	Short: "Parse an L5K file and save it as a snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectSave,
}

var projectLoadCmd = &cobra.Command{
	Use:   "load <snapshot.json>",
	Short: "Restore a snapshot and export its selected entities",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectLoad,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSaveCmd)
	projectCmd.AddCommand(projectLoadCmd)

	projectSaveCmd.Flags().StringP("selection", "s", "", "Selection file (YAML or JSON)")
	projectSaveCmd.Flags().Bool("all", false, "Select every entity in the project")

	projectLoadCmd.Flags().StringP("output", "o", "-", "Output path, or - for stdout")
}

func runProjectSave(cmd *cobra.Command, args []string) error {
	res, err := parseFile(args[0])
	if err != nil {
		return err
	}
	printCorrections(res)

	sel, err := selectionFromFlags(cmd, res.Project)
	if err != nil {
		return err
	}

	snap := snapshot.FromResult(res, sel)
	if err := snapshot.Save(snap, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot to %s\n", args[1])
	return nil
}

func runProjectLoad(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	res := snap.Result()
	sel := snapshot.ToSelection(snap.CheckboxStates)

	output, _ := cmd.Flags().GetString("output")
	return writeOutput(output, res.ExportWhitelist(sel))
}
