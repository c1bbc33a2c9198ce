package workflow

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ctrdecrypt/internal/ledger"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/pipeline"
	"ctrdecrypt/internal/preflight"
	"ctrdecrypt/internal/reassembly"
	"ctrdecrypt/internal/services"
	"ctrdecrypt/internal/staging"
	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/title"
	"ctrdecrypt/internal/workspace"
)

type stepFunc func(ctx context.Context, ws *workspace.Workspace, input string) (pipeline.Result, error)

// Run processes every input in the configured directory and returns the
// merged tally. Per-file failures are counted, never returned; an error
// means the run could not start or its bookkeeping failed.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	summary := Summary{RunID: runID, Started: started}
	summary.Counters.ConvertToCCI = m.cfg.Conversion.ConvertToCCI

	if err := m.cfg.EnsureDirectories(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "run", "ensure directories", "could not create log or workspace directory", err)
	}
	lock := flock.New(m.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return summary, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	sources, err := m.resolveSources()
	if err != nil {
		return summary, err
	}
	m.housekeeping(ctx)

	inputDir := m.cfg.Paths.InputDir
	if _, err := SanitizeNames(inputDir, m.logger); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "run", "sanitize names", "input directory unreadable", err)
	}
	inputs, err := Discover(inputDir)
	if err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "run", "discover inputs", "input directory unreadable", err)
	}
	summary.Counters.Count3DS = len(inputs.ThreeDS)
	summary.Counters.CountCIA = len(inputs.CIA)
	summary.Counters.Total = inputs.Total()

	store, closeStore := m.openLedger()
	defer closeStore()
	if store != nil {
		if err := store.BeginRun(ctx, runID, inputDir, m.cfg.Conversion.ConvertToCCI, started); err != nil {
			m.ledgerWarning("could not record run start", err)
			store = nil
		}
	}

	if inputs.Total() == 0 {
		logging.WarnWithContext(m.logger, "no CIA or 3DS files found", "no_inputs",
			logging.String("input_dir", inputDir),
			logging.String(logging.FieldImpact, "nothing to decrypt"),
		)
	} else {
		m.logger.Info("decryption run started",
			logging.String(logging.FieldEventType, "run_start"),
			logging.Int("3ds", len(inputs.ThreeDS)),
			logging.Int("cia", len(inputs.CIA)),
			logging.Bool("convert_to_cci", m.cfg.Conversion.ConvertToCCI),
		)
		summary = m.runBatches(ctx, summary, sources, inputs, store)
	}

	summary.Duration = time.Since(started)
	if store != nil {
		if err := store.FinishRun(ctx, runID, summary.Counters, time.Now()); err != nil {
			m.ledgerWarning("could not record run result", err)
		}
	}
	m.logOutcome(summary)
	return summary, nil
}

func (m *Manager) runBatches(ctx context.Context, summary Summary, sources workspace.Sources, inputs Inputs, store *ledger.Store) Summary {
	iso, err := workspace.NewIsolator(m.cfg.Paths.WorkspaceDir, sources, m.logger)
	if err != nil {
		// Every input fails when the workspace root is unusable.
		logging.ErrorWithContext(m.logger, "workspace setup failed", "workspace_failed", logging.Error(err))
		summary.Counters.DSErr += len(inputs.ThreeDS)
		summary.Counters.CIAErr += len(inputs.CIA)
		return summary
	}
	pipe := pipeline.New(pipeline.Options{
		ConvertPending: m.cfg.Conversion.ConvertToCCI,
		Timeout:        m.cfg.ToolTimeout(),
		Executor:       m.exec,
		Logger:         m.logger,
	})

	results := make(chan pipeline.Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			summary.Counters = summary.Counters.Combine(res.Counters)
			summary.Results = append(summary.Results, res)
			if store != nil {
				m.recordTask(ctx, store, summary.RunID, res)
			}
		}
	}()

	m.runBatch(ctx, iso, pipeline.Batch3DS, inputs.ThreeDS, pipe.Decrypt3DS, results)
	m.runBatch(ctx, iso, pipeline.BatchCIA, inputs.CIA, pipe.DecryptCIA, results)
	if m.cfg.Conversion.ConvertToCCI {
		candidates, err := ConversionCandidates(m.cfg.Paths.InputDir)
		if err != nil {
			logging.ErrorWithContext(m.logger, "could not list conversion candidates", "convert_discovery_failed", logging.Error(err))
		} else {
			m.logger.Info("starting CCI conversion", logging.Int("files", len(candidates)))
			m.runBatch(ctx, iso, pipeline.BatchConvert, candidates, pipe.ConvertCIA, results)
		}
	}
	close(results)
	<-done

	slices.SortStableFunc(summary.Results, func(a, b pipeline.Result) int {
		return cmp.Compare(a.Input, b.Input)
	})
	return summary
}

// runBatch runs one task per input and waits for all of them. Results are
// handed to the aggregator; tasks never touch the shared totals. Once ctx is
// cancelled no further inputs are scheduled; running tasks are awaited.
func (m *Manager) runBatch(ctx context.Context, iso *workspace.Isolator, batch pipeline.Batch, inputs []string, step stepFunc, results chan<- pipeline.Result) {
	if len(inputs) == 0 {
		return
	}
	batchCtx := services.WithBatch(ctx, string(batch))
	logger := logging.WithContext(batchCtx, m.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("files", len(inputs)),
	)

	var g errgroup.Group
	g.SetLimit(m.parallelism())
	for i, input := range inputs {
		// Go blocks while the pool is full; a task handed a slot after the
		// cancel returns without running.
		if err := ctx.Err(); err != nil {
			logging.WarnWithContext(logger, "batch cancelled", "batch_cancelled",
				logging.Int("skipped", len(inputs)-i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining files left untouched"),
			)
			break
		}
		g.Go(func() error {
			if batchCtx.Err() != nil {
				return nil
			}
			results <- m.runTask(batchCtx, iso, batch, input, step)
			return nil
		})
	}
	_ = g.Wait()
	logger.Info("batch finished", logging.String(logging.FieldEventType, "batch_complete"))
}

// runTask runs one input inside its own workspace. Errors and panics are
// converted into one error for the batch.
func (m *Manager) runTask(ctx context.Context, iso *workspace.Isolator, batch pipeline.Batch, input string, step stepFunc) (res pipeline.Result) {
	started := time.Now()
	taskCtx := services.WithTaskID(ctx, uuid.NewString())
	logger := logging.WithContext(taskCtx, m.logger).With(logging.String(logging.FieldTask, filepath.Base(input)))

	fault := func(err error) pipeline.Result {
		logging.ErrorWithContext(logger, "task failed unexpectedly", "task_fault",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return pipeline.Result{
			Input:    input,
			Batch:    batch,
			State:    pipeline.StateFaulted,
			Counters: batch.Fault(),
			Err:      err,
			Duration: time.Since(started),
		}
	}
	defer func() {
		if r := recover(); r != nil {
			res = fault(fmt.Errorf("panic: %v", r))
		}
	}()

	var out pipeline.Result
	err := iso.Use(taskCtx, func(ws *workspace.Workspace) error {
		var stepErr error
		out, stepErr = step(taskCtx, ws, input)
		return stepErr
	})
	if err != nil && !out.State.Terminal() {
		return fault(err)
	}
	if err != nil {
		// The task reached a verdict; only workspace cleanup failed.
		out.Err = err
	}
	return out
}

func (m *Manager) parallelism() int {
	if m.cfg.Workers.MaxParallel > 0 {
		return m.cfg.Workers.MaxParallel
	}
	return -1
}

func (m *Manager) resolveSources() (workspace.Sources, error) {
	if m.sources != nil {
		return *m.sources, nil
	}
	report := preflight.RunAll(m.cfg)
	if err := report.Err(); err != nil {
		return workspace.Sources{}, err
	}
	return workspace.Sources{
		Inspector: report.ToolPath(m.cfg.Tools.Inspector),
		Decryptor: report.ToolPath(m.cfg.Tools.Decryptor),
		Builder:   report.ToolPath(m.cfg.Tools.Builder),
		SeedDB:    m.cfg.SeedDBPath(),
	}, nil
}

// housekeeping removes what interrupted runs left behind and prunes old logs.
func (m *Manager) housekeeping(ctx context.Context) {
	if err := reassembly.Clean(m.cfg.Paths.ToolsDir); err != nil {
		m.logger.Debug("stray fragment cleanup incomplete", logging.Error(err))
	}
	swept := staging.CleanStale(ctx, m.cfg.Paths.WorkspaceDir, workspace.DirPrefix, m.cfg.StaleWorkspaceAge(), m.logger)
	if len(swept.Removed) > 0 {
		m.logger.Info("removed stale workspaces", logging.Int("count", len(swept.Removed)))
	}
	logging.PruneRunLogs(m.logger, m.cfg.Paths.LogDir, m.cfg.LogRetention())
}

// openLedger returns the injected store, or opens the configured one. The
// returned func releases whatever this call opened.
func (m *Manager) openLedger() (*ledger.Store, func()) {
	if m.ledger != nil {
		return m.ledger, func() {}
	}
	if !m.cfg.Ledger.Enabled {
		return nil, func() {}
	}
	store, err := ledger.Open(m.cfg.Ledger.Path)
	if err != nil {
		m.ledgerWarning("could not open run history", err)
		return nil, func() {}
	}
	if keep := m.cfg.LogRetention(); keep > 0 {
		if removed, err := store.PruneBefore(context.Background(), time.Now().Add(-keep)); err != nil {
			m.ledgerWarning("could not prune run history", err)
		} else if removed > 0 {
			m.logger.Debug("pruned run history", logging.Int("runs", int(removed)))
		}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			m.logger.Debug("ledger close failed", logging.Error(err))
		}
	}
}

func (m *Manager) recordTask(ctx context.Context, store *ledger.Store, runID string, res pipeline.Result) {
	task := ledger.Task{
		RunID:        runID,
		Input:        filepath.Base(res.Input),
		Batch:        string(res.Batch),
		State:        string(res.State),
		TitleID:      res.Record.TitleID,
		TitleVersion: res.Record.Version,
		Duration:     res.Duration,
	}
	if res.Category != title.Unknown {
		task.Category = res.Category.String()
	}
	if res.Output != "" {
		task.Output = filepath.Base(res.Output)
	}
	if res.Err != nil {
		task.ErrorMessage = res.Err.Error()
	}
	if err := store.RecordTask(context.WithoutCancel(ctx), task); err != nil {
		m.ledgerWarning("could not record task", err)
	}
}

func (m *Manager) ledgerWarning(msg string, err error) {
	logging.WarnWithContext(m.logger, msg, "ledger_unavailable",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run history is incomplete; decryption continues"),
	)
}

func (m *Manager) logOutcome(summary Summary) {
	c := summary.Counters
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("outcome", string(c.Outcome())),
		logging.Int("total", c.Total),
		logging.Int("final", c.Final),
		logging.Int("ds_errors", c.DSErr),
		logging.Int("cia_errors", c.CIAErr),
		logging.Int("cci_errors", c.CCIErr),
		logging.Duration("duration", summary.Duration),
	}
	switch c.Outcome() {
	case tally.OutcomeComplete:
		m.logger.Info("decrypting finished", logging.Args(attrs...)...)
	case tally.OutcomePartial:
		logging.WarnWithContext(m.logger, "some files were not decrypted", "run_partial", attrs...)
	default:
		if c.Total > 0 {
			logging.WarnWithContext(m.logger, "no files were decrypted", "run_failed", attrs...)
		}
	}
}
