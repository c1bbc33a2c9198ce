package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/ledger"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/pipeline"
	"ctrdecrypt/internal/services/toolrun"
	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/testsupport"
	"ctrdecrypt/internal/workflow"
	"ctrdecrypt/internal/workspace"
)

func stubSources(cfg *config.Config) workspace.Sources {
	return workspace.Sources{
		Inspector: filepath.Join(cfg.Paths.ToolsDir, cfg.Tools.Inspector),
		Decryptor: filepath.Join(cfg.Paths.ToolsDir, cfg.Tools.Decryptor),
		Builder:   filepath.Join(cfg.Paths.ToolsDir, cfg.Tools.Builder),
		SeedDB:    cfg.SeedDBPath(),
	}
}

func newFakeTools() *testsupport.FakeTools {
	return &testsupport.FakeTools{
		Reports:     map[string]string{},
		Fragments:   map[string][]string{},
		FailOutputs: map[string]bool{},
	}
}

func runManager(t *testing.T, cfg *config.Config, exec toolrun.Executor, opts ...workflow.Option) workflow.Summary {
	t.Helper()
	opts = append([]workflow.Option{
		workflow.WithExecutor(exec),
		workflow.WithSources(stubSources(cfg)),
	}, opts...)
	mgr := workflow.NewManager(cfg, logging.NewNop(), opts...)
	summary, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary
}

func assertNoWorkspaces(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkspaceDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), workspace.DirPrefix) {
			t.Fatalf("workspace %s left behind", entry.Name())
		}
	}
}

func TestRunDecryptsConcurrentThreeDSInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger(), testsupport.WithMaxParallel(3))
	tools := newFakeTools()
	for i := range 10 {
		name := fmt.Sprintf("Game %02d.3ds", i)
		testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, name))
		tools.Reports[name] = testsupport.Report("0004000000055D00", "0", "Secure")
	}

	summary := runManager(t, cfg, tools)

	want := tally.Counters{Total: 10, Final: 10, Count3DS: 10}
	if summary.Counters != want {
		t.Fatalf("counters = %+v, want %+v", summary.Counters, want)
	}
	if summary.Outcome() != tally.OutcomeComplete {
		t.Fatalf("outcome = %s", summary.Outcome())
	}
	if len(summary.Results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(summary.Results))
	}
	for i := range 10 {
		out := filepath.Join(cfg.Paths.InputDir, fmt.Sprintf("Game %02d-decrypted.cci", i))
		if !fileutil.Exists(out) {
			t.Fatalf("missing output %s", out)
		}
	}
	if n := len(tools.CallsTo("makerom")); n != 10 {
		t.Fatalf("builder calls = %d, want 10", n)
	}
	assertNoWorkspaces(t, cfg)
}

func TestRunMixedBatchesWithConversion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger(), testsupport.WithConversion(true))
	tools := newFakeTools()
	dlcReport := testsupport.Report("0004008C00012345", "1", "Secure", "00000000")
	inputs := map[string]string{
		"Cart.3ds":   testsupport.Report("0004000000055D00", "0", "Secure"),
		"Game.cia":   testsupport.Report("0004000000066E00", "0", "Secure"),
		"Extras.cia": dlcReport,
	}
	for name, report := range inputs {
		testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, name))
		tools.Reports[name] = report
	}
	tools.Reports["Extras DLC-decrypted.cia"] = dlcReport

	summary := runManager(t, cfg, tools)

	want := tally.Counters{Total: 3, Final: 2, Count3DS: 1, CountCIA: 2, CCIErr: 1, ConvertToCCI: true}
	if summary.Counters != want {
		t.Fatalf("counters = %+v, want %+v", summary.Counters, want)
	}
	if summary.Outcome() != tally.OutcomePartial {
		t.Fatalf("outcome = %s", summary.Outcome())
	}
	dir := cfg.Paths.InputDir
	if !fileutil.Exists(filepath.Join(dir, "Game Game-decrypted.cci")) {
		t.Fatal("game archive was not converted")
	}
	for _, gone := range []string{"Game Game-decrypted.cia", "Extras DLC-decrypted.cia"} {
		if fileutil.Exists(filepath.Join(dir, gone)) {
			t.Fatalf("%s should be removed after conversion", gone)
		}
	}
	if failed := summary.Failed(); len(failed) != 1 || failed[0].Batch != pipeline.BatchConvert {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

type panickingTools struct {
	*testsupport.FakeTools
	target string
}

func (p panickingTools) Run(ctx context.Context, inv toolrun.Invocation) (toolrun.Result, error) {
	if strings.HasPrefix(filepath.Base(inv.Binary), "decrypt") && filepath.Base(inv.Args[len(inv.Args)-1]) == p.target {
		panic("decryptor exploded")
	}
	return p.FakeTools.Run(ctx, inv)
}

func TestRunCountsPanicsAsBatchErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger())
	tools := newFakeTools()
	for _, name := range []string{"Good.3ds", "Bad.3ds", "Arc.cia"} {
		testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, name))
		tools.Reports[name] = testsupport.Report("0004000000055D00", "0", "Secure")
	}

	summary := runManager(t, cfg, panickingTools{FakeTools: tools, target: "Bad.3ds"})

	want := tally.Counters{Total: 3, Final: 2, Count3DS: 2, CountCIA: 1, DSErr: 1}
	if summary.Counters != want {
		t.Fatalf("counters = %+v, want %+v", summary.Counters, want)
	}
	var faulted *pipeline.Result
	for i := range summary.Results {
		if summary.Results[i].State == pipeline.StateFaulted {
			faulted = &summary.Results[i]
		}
	}
	if faulted == nil || filepath.Base(faulted.Input) != "Bad.3ds" || faulted.Err == nil {
		t.Fatalf("expected faulted result for Bad.3ds, got %+v", faulted)
	}
	assertNoWorkspaces(t, cfg)
}

// cancellingTools cancels the run on its first invocation.
type cancellingTools struct {
	*testsupport.FakeTools
	once   *sync.Once
	cancel context.CancelFunc
}

func (c cancellingTools) Run(ctx context.Context, inv toolrun.Invocation) (toolrun.Result, error) {
	c.once.Do(c.cancel)
	return c.FakeTools.Run(ctx, inv)
}

func TestRunStopsSchedulingAfterCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger(),
		testsupport.WithMaxParallel(1), testsupport.WithConversion(true))
	tools := newFakeTools()
	names := []string{"A.3ds", "B.3ds", "C.3ds", "D.3ds", "E.3ds", "F.cia", "G.cia"}
	for _, name := range names {
		testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, name))
		tools.Reports[name] = testsupport.Report("0004000000055D00", "0", "Secure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := cancellingTools{FakeTools: tools, once: &sync.Once{}, cancel: cancel}
	mgr := workflow.NewManager(cfg, logging.NewNop(), workflow.WithExecutor(exec), workflow.WithSources(stubSources(cfg)))
	summary, err := mgr.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only the task that was running when the cancel landed reports.
	if len(summary.Results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(summary.Results), summary.Results)
	}
	if res := summary.Results[0]; res.Batch != pipeline.Batch3DS || filepath.Base(res.Input) != "A.3ds" {
		t.Fatalf("unexpected result after cancel: %+v", res)
	}
	for _, call := range tools.Calls() {
		for _, arg := range call.Args {
			if strings.HasSuffix(arg, ".cia") {
				t.Fatalf("tool invoked for CIA input after cancel: %+v", call)
			}
		}
	}
	if summary.Counters.Total != len(names) {
		t.Fatalf("total = %d, want %d", summary.Counters.Total, len(names))
	}
	assertNoWorkspaces(t, cfg)
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger())
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	mgr := workflow.NewManager(cfg, logging.NewNop(), workflow.WithExecutor(newFakeTools()), workflow.WithSources(stubSources(cfg)))
	if _, err := mgr.Run(context.Background()); !errors.Is(err, workflow.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunWithoutInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger())
	tools := newFakeTools()

	summary := runManager(t, cfg, tools)

	if summary.Counters.Total != 0 || summary.Outcome() != tally.OutcomeNone {
		t.Fatalf("unexpected summary: %+v", summary.Counters)
	}
	if len(tools.Calls()) != 0 {
		t.Fatal("no tool should run without inputs")
	}
}

func TestRunRecordsLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools())
	tools := newFakeTools()
	testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, "Cart.3ds"))
	tools.Reports["Cart.3ds"] = testsupport.Report("0004000000055D00", "0", "Secure")
	testsupport.Touch(t, filepath.Join(cfg.Paths.InputDir, "Plain.cia"))
	tools.Reports["Plain.cia"] = testsupport.Report("0004000000030000", "0", "None")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	summary := runManager(t, cfg, tools, workflow.WithLedger(store))

	ctx := context.Background()
	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun = %v, %v", run, err)
	}
	if run.Counters != summary.Counters || run.Outcome != string(tally.OutcomePartial) {
		t.Fatalf("ledger run = %+v, summary = %+v", run, summary.Counters)
	}
	tasks, err := store.Tasks(ctx, summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", tasks)
	}
	states := map[string]string{}
	for _, task := range tasks {
		states[task.Input] = task.State
	}
	if states["Cart.3ds"] != string(pipeline.StateSucceeded) || states["Plain.cia"] != string(pipeline.StateNotEncrypted) {
		t.Fatalf("unexpected task states: %v", states)
	}
}

func TestRunRemovesStrayFragmentsFromToolsDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedTools(), testsupport.WithoutLedger())
	stray := filepath.Join(cfg.Paths.ToolsDir, "tmp.Main.ncch")
	testsupport.WriteNCCH(t, stray)

	runManager(t, cfg, newFakeTools())

	if fileutil.Exists(stray) {
		t.Fatal("stray fragment survived")
	}
}
