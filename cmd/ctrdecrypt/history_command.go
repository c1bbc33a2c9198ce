package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show recorded runs, or the tasks of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return showRun(cmd, store, strings.TrimSpace(args[0]))
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, runsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func openHistory(cfg *config.Config) (*ledger.Store, error) {
	if !cfg.Ledger.Enabled {
		return nil, errors.New("run ledger is disabled (set ledger.enabled = true)")
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

func showRun(cmd *cobra.Command, store *ledger.Store, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	tasks, err := store.Tasks(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Input:    %s\n", run.InputDir)
	fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Convert:  %s\n", yesNo(run.ConvertToCCI))
	fmt.Fprintf(out, "  Outcome:  %s\n", runOutcome(*run))
	fmt.Fprintf(out, "  Counters: %s\n\n", run.Counters)

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks recorded")
		return nil
	}
	fmt.Fprintln(out, tasksTable(tasks))
	return nil
}

func runsTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		c := run.Counters
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			runOutcome(run),
			strconv.Itoa(c.Count3DS),
			strconv.Itoa(c.CountCIA),
			strconv.Itoa(c.Final),
			strconv.Itoa(c.Errors()),
		})
	}
	return renderTable(tableSpec{
		Title:   "Runs",
		Headers: []string{"Run", "Started", "Duration", "Outcome", "3DS", "CIA", "Decrypted", "Errors"},
		Rows:    rows,
		Aligns: []columnAlignment{
			alignLeft, alignLeft, alignRight, alignLeft,
			alignRight, alignRight, alignRight, alignRight,
		},
	})
}

func tasksTable(tasks []ledger.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		titleID := task.TitleID
		if task.TitleVersion != "" {
			titleID += " v" + task.TitleVersion
		}
		detail := filepath.Base(task.Output)
		if task.ErrorMessage != "" {
			detail = task.ErrorMessage
		} else if task.Output == "" {
			detail = ""
		}
		rows = append(rows, []string{
			filepath.Base(task.Input),
			task.Batch,
			task.State,
			task.Category,
			titleID,
			detail,
		})
	}
	return renderTable(tableSpec{
		Title:   "Tasks",
		Headers: []string{"File", "Batch", "State", "Category", "Title", "Output / Error"},
		Rows:    rows,
	})
}

func runOutcome(run ledger.Run) string {
	if !run.Finished() {
		return "unfinished"
	}
	return run.Outcome
}
