package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prochot/L5K-Tuner/l5k"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.l5k>",
	Short: "Write a reduced L5K file keeping only the selected entities",
	Long: `Export parses an L5K controller export and re-emits it with only the
entities named by the selection file (or everything with --all).

Two modes are available. Whitelist rebuilds the kept entities from the
parsed model. Filter replays the original lines and drops the unselected
ones, preserving the source text of everything kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("selection", "s", "", "Selection file (YAML or JSON)")
	exportCmd.Flags().Bool("all", false, "Select every entity in the project")
	exportCmd.Flags().String("mode", "whitelist", "Export mode: whitelist or filter")
	exportCmd.Flags().StringP("output", "o", "-", "Output path, or - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	res, err := parseFile(args[0])
	if err != nil {
		return err
	}
	printCorrections(res)

	sel, err := selectionFromFlags(cmd, res.Project)
	if err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("mode")
	var out string
	switch mode {
	case "whitelist":
		out = res.ExportWhitelist(sel)
	case "filter":
		out = res.ExportFiltered(sel)
	default:
		return fmt.Errorf("unknown export mode %q (want whitelist or filter)", mode)
	}

	output, _ := cmd.Flags().GetString("output")
	return writeOutput(output, out)
}

// selectionFromFlags resolves --all / --selection into a concrete selection.
func selectionFromFlags(cmd *cobra.Command, p *l5k.Project) (l5k.Selection, error) {
	all, _ := cmd.Flags().GetBool("all")
	path, _ := cmd.Flags().GetString("selection")

	if all {
		return l5k.SelectAll(p), nil
	}
	if path == "" {
		return l5k.Selection{}, fmt.Errorf("either --selection or --all is required")
	}
	return loadSelection(path)
}

// loadSelection reads a selection from a YAML or JSON file, keyed by
// extension. YAML is the default since JSON is a YAML subset anyway.
func loadSelection(path string) (l5k.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return l5k.Selection{}, fmt.Errorf("reading selection: %w", err)
	}

	var sel l5k.Selection
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &sel); err != nil {
			return l5k.Selection{}, fmt.Errorf("decoding selection %s: %w", path, err)
		}
		return sel, nil
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return l5k.Selection{}, fmt.Errorf("decoding selection %s: %w", path, err)
	}
	return sel, nil
}
