// Package main provides a CLI that runs the worksheet extraction pipeline
// against a local .xlsx file or a SharePoint URL and prints JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/config"
	"github.com/bitfantasy/sheetform/internal/forms/service"
	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet/accessor"
	"github.com/bitfantasy/sheetform/internal/sheet/entry"
	"github.com/bitfantasy/sheetform/internal/sheet/schema"
)

var (
	outputPath  string
	pretty      bool
	verbose     bool
	strategy    string
	workers     int
	graphToken  string
	configSheet string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract form metadata from Excel worksheets",
		Long: `extract reads a workbook from a local path or a SharePoint URL and
prints worksheet metadata, entry records or a generated form schema as JSON.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	pf.BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	pf.BoolVar(&verbose, "verbose", false, "Log progress to stderr")
	pf.StringVar(&strategy, "strategy", accessor.StrategyLive, "Strategy for SharePoint URLs: live or bulk")
	pf.IntVar(&workers, "workers", accessor.DefaultWorkers, "Concurrent cell reads for the live strategy")
	pf.StringVar(&graphToken, "token", "", "Graph access token for SharePoint URLs (default: $GRAPH_TOKEN)")

	schemaCmd := &cobra.Command{
		Use:   "schema <workbook> <main-sheet>",
		Short: "Generate a form schema from a main sheet and optional config sheet",
		Args:  cobra.ExactArgs(2),
		RunE:  runSchema,
	}
	schemaCmd.Flags().StringVar(&configSheet, "config", "", "Config sheet name")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "worksheets <workbook>",
			Short: "List worksheets",
			Args:  cobra.ExactArgs(1),
			RunE:  runWorksheets,
		},
		&cobra.Command{
			Use:   "display <workbook> <sheet>",
			Short: "Extract complete cell metadata of a worksheet",
			Args:  cobra.ExactArgs(2),
			RunE:  runDisplay,
		},
		&cobra.Command{
			Use:   "entry <workbook> <sheet>",
			Short: "Extract header-keyed records of a worksheet",
			Args:  cobra.ExactArgs(2),
			RunE:  runEntry,
		},
		&cobra.Command{
			Use:   "form <workbook>",
			Short: "Detect display/entry/config sheets and extract all of them",
			Args:  cobra.ExactArgs(1),
			RunE:  runForm,
		},
		schemaCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// newAccessor picks the filesystem reader for paths and a Graph-backed
// strategy for URLs.
func newAccessor(ref string, logger *zap.Logger) (accessor.Accessor, error) {
	if !isRemote(ref) {
		if _, err := os.Stat(ref); err != nil {
			return nil, fmt.Errorf("file not found: %s", ref)
		}
		return accessor.NewLocal(logger), nil
	}
	token := graphToken
	if token == "" {
		token = os.Getenv("GRAPH_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("a Graph token is required for %s (--token or GRAPH_TOKEN)", ref)
	}
	client := graph.NewClient(graph.Options{Tokens: graph.StaticToken(token), Logger: logger.Named("graph")})
	return accessor.New(config.ExtractionConfig{Strategy: strategy, Workers: workers}, client, logger)
}

func withSignals(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func write(v any) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func runWorksheets(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()
	acc, err := newAccessor(args[0], logger)
	if err != nil {
		return err
	}
	ctx, cancel := withSignals(cmd)
	defer cancel()

	ws, err := acc.ListWorksheets(ctx, args[0])
	if err != nil {
		return err
	}
	return write(ws)
}

func runDisplay(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()
	acc, err := newAccessor(args[0], logger)
	if err != nil {
		return err
	}
	ctx, cancel := withSignals(cmd)
	defer cancel()

	md, err := acc.Worksheet(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return write(md)
}

func runEntry(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()
	acc, err := newAccessor(args[0], logger)
	if err != nil {
		return err
	}
	ctx, cancel := withSignals(cmd)
	defer cancel()

	ur, err := acc.UsedRange(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return write(entry.Extract(ur.Values))
}

func runSchema(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()
	acc, err := newAccessor(args[0], logger)
	if err != nil {
		return err
	}
	ctx, cancel := withSignals(cmd)
	defer cancel()

	mainRange, err := acc.UsedRange(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	var cfg [][]any
	if configSheet != "" {
		ur, err := acc.UsedRange(ctx, args[0], configSheet)
		if err != nil {
			return err
		}
		cfg = ur.Values
	}
	rules, errs := schema.ParseConfig(cfg)
	for _, e := range errs {
		logger.Warn("config rule dropped", zap.Error(e))
	}
	return write(schema.Build(mainRange.Values, rules))
}

func runForm(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()
	acc, err := newAccessor(args[0], logger)
	if err != nil {
		return err
	}
	ctx, cancel := withSignals(cmd)
	defer cancel()

	ws, err := acc.ListWorksheets(ctx, args[0])
	if err != nil {
		return err
	}
	names, err := service.DetectSheets(ws)
	if err != nil {
		return err
	}
	display, err := acc.Worksheet(ctx, args[0], names.Display)
	if err != nil {
		return err
	}
	ur, err := acc.UsedRange(ctx, args[0], names.Entry)
	if err != nil {
		return err
	}

	out := map[string]any{
		"worksheets": names,
		"display":    display,
		"entry":      entry.Extract(ur.Values),
	}
	if names.Config != "" {
		cur, err := acc.UsedRange(ctx, args[0], names.Config)
		if err != nil {
			logger.Warn("config sheet unreadable", zap.String("worksheet", names.Config), zap.Error(err))
		} else {
			rules, _ := schema.ParseConfig(cur.Values)
			out["field_rules"] = rules
		}
	}
	return write(out)
}
