package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"ctrdecrypt/internal/services/toolrun"
)

// DefaultFragments is what FakeTools' decryptor leaves behind by default.
var DefaultFragments = []string{"Main.ncch"}

// FakeTools is a toolrun.Executor that imitates the inspector, decryptor and
// builder by their side effects. Tools are told apart by binary base name.
// It is safe for concurrent use.
type FakeTools struct {
	// Reports maps an input's base name to the inspector output for it.
	Reports map[string]string
	// Fragments maps an input's base name to the fragment names the
	// decryptor drops. Inputs not listed get DefaultFragments.
	Fragments map[string][]string
	// FailOutputs lists builder output base names that are never written.
	FailOutputs map[string]bool
	// NoTWLContent stops the inspector from extracting DS content.
	NoTWLContent bool

	mu    sync.Mutex
	calls []toolrun.Invocation
}

// Run implements toolrun.Executor.
func (f *FakeTools) Run(ctx context.Context, inv toolrun.Invocation) (toolrun.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, toolrun.Invocation{
		Binary: inv.Binary,
		Args:   slices.Clone(inv.Args),
		Dir:    inv.Dir,
		Stdin:  inv.Stdin,
	})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return toolrun.Result{ExitCode: -1}, err
	}
	name := filepath.Base(inv.Binary)
	switch {
	case strings.HasPrefix(name, "ctrtool"):
		return f.inspect(inv)
	case strings.HasPrefix(name, "decrypt"):
		return f.decrypt(inv)
	case strings.HasPrefix(name, "makerom"):
		return f.build(inv)
	}
	return toolrun.Result{ExitCode: 127}, nil
}

// Calls returns a copy of every recorded invocation.
func (f *FakeTools) Calls() []toolrun.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the invocations of binaries whose base name starts with prefix.
func (f *FakeTools) CallsTo(prefix string) []toolrun.Invocation {
	var out []toolrun.Invocation
	for _, call := range f.Calls() {
		if strings.HasPrefix(filepath.Base(call.Binary), prefix) {
			out = append(out, call)
		}
	}
	return out
}

func (f *FakeTools) inspect(inv toolrun.Invocation) (toolrun.Result, error) {
	if len(inv.Args) == 0 {
		return toolrun.Result{ExitCode: 1}, nil
	}
	if strings.HasPrefix(inv.Args[0], "--contents=") {
		if f.NoTWLContent {
			return toolrun.Result{ExitCode: 1}, nil
		}
		target := strings.TrimPrefix(inv.Args[0], "--contents=")
		if err := os.WriteFile(target+".0000.00000000", []byte("srl"), 0o644); err != nil {
			return toolrun.Result{ExitCode: 1}, err
		}
		return toolrun.Result{}, nil
	}
	input := filepath.Base(inv.Args[len(inv.Args)-1])
	f.mu.Lock()
	report := f.Reports[input]
	f.mu.Unlock()
	return toolrun.Result{Output: report}, nil
}

func (f *FakeTools) decrypt(inv toolrun.Invocation) (toolrun.Result, error) {
	if len(inv.Args) == 0 {
		return toolrun.Result{ExitCode: 1}, nil
	}
	input := filepath.Base(inv.Args[len(inv.Args)-1])
	f.mu.Lock()
	names, ok := f.Fragments[input]
	f.mu.Unlock()
	if !ok {
		names = DefaultFragments
	}
	for _, name := range names {
		if err := writeNCCH(filepath.Join(inv.Dir, name)); err != nil {
			return toolrun.Result{ExitCode: 1}, err
		}
	}
	return toolrun.Result{}, nil
}

func (f *FakeTools) build(inv toolrun.Invocation) (toolrun.Result, error) {
	idx := slices.Index(inv.Args, "-o")
	if idx < 0 || idx+1 >= len(inv.Args) {
		return toolrun.Result{ExitCode: 1}, nil
	}
	output := inv.Args[idx+1]
	f.mu.Lock()
	fail := f.FailOutputs[filepath.Base(output)]
	f.mu.Unlock()
	if fail {
		// Exits zero without writing, like the real builder sometimes does.
		return toolrun.Result{}, nil
	}
	if err := os.WriteFile(output, []byte("built"), 0o644); err != nil {
		return toolrun.Result{ExitCode: 1}, err
	}
	return toolrun.Result{}, nil
}

// Report renders an inspector report in the default dialect.
func Report(titleID, version, crypto string, contentIDs ...string) string {
	var b strings.Builder
	b.WriteString("Title id:               " + titleID + "\n")
	b.WriteString("TitleVersion:           " + version + "\n")
	b.WriteString("Crypto Key:             " + crypto + "\n")
	for _, id := range contentIDs {
		b.WriteString("ContentId:              " + id + "\n")
	}
	return b.String()
}

// TWLReport renders an inspector report for a DSi title.
func TWLReport(titleID, version, encrypted string) string {
	return "Title id:               " + titleID + "\n" +
		"Crypto Key:             Fixed\n" +
		"TitleId:                " + titleID + "\n" +
		"TitleVersion:           " + version + "\n" +
		"Encrypted:              " + encrypted + "\n"
}
