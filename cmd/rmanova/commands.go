package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rmanova/adapters/api"
	"rmanova/adapters/excel"
	"rmanova/domain/core"
	"rmanova/internal/anova"
	"rmanova/internal/errors"
	"rmanova/internal/oracle"
	"rmanova/internal/report"
	"rmanova/internal/testkit"
)

// tableLimit caps the rows printed to the terminal; --out and --json carry
// every cell.
const tableLimit = 50

func (a *app) engine() *anova.Engine {
	return anova.NewEngine(
		anova.WithWorkers(a.cfg.Engine.Workers),
		anova.WithChunkSize(a.cfg.Engine.ChunkSize),
		anova.WithLogger(a.logger),
	)
}

func (a *app) load(path string, sheets []string) (*excel.Dataset, error) {
	ds, err := excel.NewDataReader(path, excel.WithSheets(sheets...), excel.WithLogger(a.logger)).Read()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("dataset labels",
		"path", path,
		"conditions", ds.Conditions,
		"slices", len(ds.Slices))
	return ds, nil
}

func newComputeCmd(a *app) *cobra.Command {
	var sheets []string
	var workers int
	var out string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compute FILE",
		Short: "Compute F and p for every batch cell of a workbook or CSV file",
		Long: `Compute a one-way repeated-measures ANOVA for each sheet of FILE.

Rows are subjects, columns are conditions and each sheet is one batch cell.
An optional leading "subject" column holds subject identifiers.

Example: rmanova compute scans.xlsx --out results.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				a.cfg.Engine.Workers = workers
			}
			ds, err := a.load(args[0], sheets)
			if err != nil {
				return err
			}

			runID := core.NewRunID()
			res, err := a.engine().Compute(cmd.Context(), ds.Data)
			if err != nil {
				return err
			}
			a.logger.Info("rm-anova computed", "run_id", runID, "cells", res.Len())

			if out != "" {
				if err := excel.WriteResults(out, res, ds.Slices); err != nil {
					return err
				}
				a.logger.Info("results written", "path", out)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report.NewPayload(runID, res, ds.Slices))
			}
			if res.Len() == 1 {
				fmt.Fprintln(w, report.SourceTable(res.Cell(0)))
				return nil
			}
			fmt.Fprintln(w, report.Results(res, ds.Slices, tableLimit))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sheets, "sheets", nil, "Sheets to read (default all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (default RMANOVA_WORKERS)")
	cmd.Flags().StringVar(&out, "out", "", "Write per-cell results to this xlsx file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON payload instead of a table")

	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var sheets []string
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check the engine against the long-format regression oracle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tolerance") {
				a.cfg.Verify.Tolerance = tolerance
			}
			ds, err := a.load(args[0], sheets)
			if err != nil {
				return err
			}
			res, err := a.engine().Compute(cmd.Context(), ds.Data)
			if err != nil {
				return err
			}

			agreements, err := oracle.Verify(ds.Data, res, ds.Conditions, a.cfg.Verify.Tolerance)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Verification(agreements, ds.Slices))

			var failed []string
			for _, ag := range agreements {
				if !ag.Agree {
					failed = append(failed, report.Label(ag.Index, ds.Slices))
				}
			}
			if len(failed) > 0 {
				a.logger.Warn("oracle disagreement", "cells", failed, "tolerance", a.cfg.Verify.Tolerance)
				return errors.OracleMismatch("%d of %d cells disagree with the oracle: %s",
					len(failed), len(agreements), strings.Join(failed, " "))
			}
			a.logger.Info("oracle agreement", "cells", len(agreements), "tolerance", a.cfg.Verify.Tolerance)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sheets, "sheets", nil, "Sheets to read (default all)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Relative tolerance on F and p (default RMANOVA_TOLERANCE)")

	return cmd
}

func newSimulateCmd(a *app) *cobra.Command {
	cfg := testkit.DefaultDesignConfig()
	var slices int
	var effect []float64

	cmd := &cobra.Command{
		Use:   "simulate OUT",
		Short: "Write a synthetic within-subject design to an xlsx or csv file",
		Long: `Generate a balanced design and write it with one sheet per batch cell.

Example: rmanova simulate design.xlsx --subjects 12 --conditions 3 --slices 5 --effect 0,0.5,1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if slices > 1 {
				cfg.Batch = []int{slices}
			}
			if len(effect) > 0 {
				cfg.ConditionEffects = effect
				cfg.SubjectSpread = 1
				cfg.Noise = 1
			}
			data, err := testkit.GenerateDesign(cfg)
			if err != nil {
				return err
			}

			var names []string
			if slices > 1 {
				names = make([]string, slices)
				for i := range names {
					names[i] = "slice_" + strconv.Itoa(i+1)
				}
			}
			if err := excel.WriteMatrix(args[0], data, oracle.DefaultLabels(cfg.Conditions), names); err != nil {
				return err
			}
			a.logger.Info("design written", "path", args[0], "shape", data.Shape(), "seed", cfg.Seed)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Subjects, "subjects", cfg.Subjects, "Number of subjects")
	cmd.Flags().IntVar(&cfg.Conditions, "conditions", cfg.Conditions, "Number of conditions")
	cmd.Flags().IntVar(&slices, "slices", 1, "Number of batch cells (sheets)")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().Float64SliceVar(&effect, "effect", nil, "Per-condition shift, e.g. 0,0.5,1")

	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rm-ANOVA HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			h := api.NewHandler(a.engine(), a.logger, a.cfg.Server.MaxBodyBytes)
			return api.Serve(cmd.Context(), a.cfg.Server.Addr, h.Routes(), a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default RMANOVA_ADDR)")

	return cmd
}
