package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prochot/L5K-Tuner/l5k"
	"github.com/prochot/L5K-Tuner/worker"
)

var rootCmd = &cobra.Command{
	Use:   "l5ktuner",
	Short: "L5K controller export tuner",
	Long:  "l5ktuner parses Rockwell L5K controller exports and re-emits filtered subsets, project snapshots, and model diffs.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	viper.SetEnvPrefix("L5KTUNER")
	viper.AutomaticEnv()
}

// newLogger configures the process logger from the persistent flags.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if viper.GetString("log_format") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// parseFile reads and parses one L5K file through the background runner.
func parseFile(path string) (*l5k.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading L5K file: %w", err)
	}

	runner := worker.NewRunner(newLogger())
	job, err := runner.Submit(context.Background(), src)
	if err != nil {
		return nil, err
	}
	res, err := job.Result()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return res, nil
}

// writeOutput writes content to path, or to stdout when path is empty or "-".
func writeOutput(path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// printCorrections surfaces the resolver's correction log when verbose.
func printCorrections(res *l5k.Result) {
	if !viper.GetBool("verbose") {
		return
	}
	for _, c := range res.Corrections {
		fmt.Fprintln(os.Stderr, c)
	}
}
