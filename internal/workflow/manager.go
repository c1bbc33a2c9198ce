package workflow

import (
	"errors"
	"log/slog"
	"time"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/ledger"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/pipeline"
	"ctrdecrypt/internal/services/toolrun"
	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/workspace"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("another ctrdecrypt run is already in progress")

// Manager coordinates one decryption run.
type Manager struct {
	cfg     *config.Config
	logger  *slog.Logger
	exec    toolrun.Executor
	sources *workspace.Sources
	ledger  *ledger.Store
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithExecutor runs tools through exec instead of real subprocesses.
func WithExecutor(exec toolrun.Executor) Option {
	return func(m *Manager) {
		m.exec = exec
	}
}

// WithSources skips tool resolution and uses the given paths.
func WithSources(sources workspace.Sources) Option {
	return func(m *Manager) {
		m.sources = &sources
	}
}

// WithLedger records runs in an already open store. The caller closes it.
func WithLedger(store *ledger.Store) Option {
	return func(m *Manager) {
		m.ledger = store
	}
}

// NewManager constructs a run manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Counters tally.Counters
	Results  []pipeline.Result
	Started  time.Time
	Duration time.Duration
}

// Outcome classifies the run as none, complete, or partial.
func (s Summary) Outcome() tally.Outcome {
	return s.Counters.Outcome()
}

// Failed returns the results that counted an error.
func (s Summary) Failed() []pipeline.Result {
	var out []pipeline.Result
	for _, res := range s.Results {
		if res.Counters.Errors() > 0 {
			out = append(out, res)
		}
	}
	return out
}
