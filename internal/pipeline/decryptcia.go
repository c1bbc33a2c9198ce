package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/reassembly"
	"ctrdecrypt/internal/services/makerom"
	"ctrdecrypt/internal/title"
	"ctrdecrypt/internal/workspace"
)

// OutputCIA names the decrypted archive for a CIA input of the given category.
func OutputCIA(input string, category title.Category) string {
	stem, _ := outputStem(input)
	return filepath.Join(filepath.Dir(input), stem+" "+category.String()+"-decrypted.cia")
}

// OutputTWL names the decrypted archive for a TWL title.
func OutputTWL(input string) string {
	stem, _ := outputStem(input)
	return filepath.Join(filepath.Dir(input), stem+" TWL-decrypted.cia")
}

// DecryptCIA decrypts one CIA archive and rebuilds it as a decrypted CIA.
func (p *Pipeline) DecryptCIA(ctx context.Context, ws *workspace.Workspace, input string) (Result, error) {
	started := time.Now()
	logger := p.taskLogger(ctx, BatchCIA, input)
	res := &Result{Input: input, Batch: BatchCIA}
	enter(logger, res, StateStart)

	if _, decrypted := outputStem(input); decrypted {
		enter(logger, res, StateSkipped)
		return finish(res, started), nil
	}

	tools, err := p.tools(ws)
	if err != nil {
		return finish(res, started), err
	}
	report, err := inspect(ctx, logger, tools, ws, input)
	if err != nil {
		return finish(res, started), err
	}
	if title.ReportsError(report) {
		logging.ErrorWithContext(logger, "CIA file is invalid", "inspect_failed",
			logging.String(logging.FieldErrorHint, "the inspector rejected the archive; check the file is a complete CIA"),
		)
		res.Counters.CIAErr++
		enter(logger, res, StateInspectFailed)
		return finish(res, started), nil
	}

	res.Record = title.Parse(report, title.DialectDefault)
	logger = logger.With(logging.Args(recordAttrs(res.Record)...)...)

	if !res.Record.Secure() {
		return p.decryptNonSecure(ctx, logger, tools, ws, res, input, report, started)
	}

	enter(logger, res, StateClassify)
	res.Category = title.Classify(res.Record.UpperID())
	if res.Category == title.Unknown {
		logging.ErrorWithContext(logger, "could not determine CIA type", "unsupported_title",
			logging.String(logging.FieldErrorHint, "title id matches no known category"),
		)
		res.Counters.CIAErr++
		enter(logger, res, StateUnsupported)
		return finish(res, started), nil
	}
	logger.Info("CIA file identified",
		logging.String("category", res.Category.String()),
		logging.String("kind", res.Category.Description()),
	)

	res.Output = OutputCIA(input, res.Category)
	if fileutil.Exists(res.Output) {
		logging.WarnWithContext(logger, "CIA file was already decrypted", "already_decrypted",
			logging.String("output", filepath.Base(res.Output)),
			logging.String(logging.FieldImpact, "existing output is kept"),
		)
		p.countSuccess(res)
		enter(logger, res, StateAlreadyDecrypted)
		return finish(res, started), nil
	}

	category := res.Category
	ok, err := decryptAndBuild(ctx, logger, tools, ws, res, input, buildPlan{
		request: makerom.BuildRequest{
			Format:  makerom.FormatCIA,
			Output:  res.Output,
			DLC:     category == title.DLC,
			Version: res.Record.Version,
		},
		strategy: func(ws *workspace.Workspace) (reassembly.Strategy, error) {
			if !category.UsesContentCatalog() {
				return reassembly.ForCategory(category, nil), nil
			}
			declared, err := reassembly.LoadDeclaredContentIDs(ws.ContentReport())
			if err != nil {
				return nil, err
			}
			return reassembly.ForCategory(category, declared), nil
		},
	})
	if err != nil {
		return finish(res, started), err
	}
	return p.settleBuild(logger, res, ok, started), nil
}

// decryptNonSecure handles archives whose crypto marker is not "Secure".
// Only TWL titles are rebuilt; everything else is reported and skipped.
func (p *Pipeline) decryptNonSecure(ctx context.Context, logger *slog.Logger, tools toolset, ws *workspace.Workspace, res *Result, input, report string, started time.Time) (Result, error) {
	if !title.IsTWLCandidate(res.Record.TitleID) {
		if res.Record.Unencrypted() {
			logging.WarnWithContext(logger, "CIA file is already decrypted", "not_encrypted",
				logging.String(logging.FieldImpact, "counted as a CIA error"),
			)
			res.Counters.CIAErr++
			enter(logger, res, StateNotEncrypted)
			return finish(res, started), nil
		}
		logging.WarnWithContext(logger, "CIA crypto state is inconclusive", "crypto_inconclusive",
			logging.String("crypto", res.Record.CryptoMarker),
			logging.String(logging.FieldImpact, "file skipped"),
		)
		enter(logger, res, StateSkipped)
		return finish(res, started), nil
	}

	twl := title.Parse(report, title.DialectTWL)
	if twl.TitleID != "" {
		res.Record.TitleID = twl.TitleID
	}
	res.Record.Version = twl.Version
	switch strings.ToUpper(twl.CryptoMarker) {
	case "NO":
		logging.WarnWithContext(logger, "TWL CIA file is already decrypted", "not_encrypted",
			logging.String(logging.FieldImpact, "counted as a CIA error"),
		)
		res.Counters.CIAErr++
		enter(logger, res, StateNotEncrypted)
		return finish(res, started), nil
	case "YES":
	default:
		logging.WarnWithContext(logger, "TWL crypto state is inconclusive", "crypto_inconclusive",
			logging.String("encrypted", twl.CryptoMarker),
			logging.String(logging.FieldImpact, "file skipped"),
		)
		enter(logger, res, StateSkipped)
		return finish(res, started), nil
	}

	logger.Info("CIA file is a TWL title")
	res.Output = OutputTWL(input)
	if fileutil.Exists(res.Output) {
		logging.WarnWithContext(logger, "TWL CIA file was already decrypted", "already_decrypted",
			logging.String("output", filepath.Base(res.Output)),
			logging.String(logging.FieldImpact, "existing output is kept"),
		)
		p.countSuccess(res)
		enter(logger, res, StateAlreadyDecrypted)
		return finish(res, started), nil
	}

	enter(logger, res, StateDecrypt)
	content, result, err := tools.inspector.ExtractTWLContent(stageContext(ctx, StateDecrypt), ws.Dir, input)
	logTool(logger, "inspector", result, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return finish(res, started), ctxErr
	}
	if content == "" {
		logging.ErrorWithContext(logger, "TWL content extraction produced nothing", "build_failed",
			logging.String(logging.FieldErrorHint, "inspector could not extract the DS content"),
		)
		res.Counters.CIAErr++
		enter(logger, res, StateBuildFailed)
		return finish(res, started), nil
	}

	enter(logger, res, StateBuild)
	result, err = tools.builder.BuildTWL(stageContext(ctx, StateBuild), ws.Dir, content, res.Output, res.Record.Version)
	logTool(logger, "builder", result, err)
	if rmErr := os.Remove(content); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		logger.Debug("TWL content cleanup failed", logging.Error(rmErr))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return finish(res, started), ctxErr
	}
	enter(logger, res, StateVerify)
	return p.settleBuild(logger, res, fileutil.Exists(res.Output), started), nil
}

// settleBuild records the verified outcome of a CIA build.
func (p *Pipeline) settleBuild(logger *slog.Logger, res *Result, ok bool, started time.Time) Result {
	if !ok {
		logging.ErrorWithContext(logger, "decrypting CIA file failed", "build_failed",
			logging.String(logging.FieldErrorHint, "builder produced no "+filepath.Base(res.Output)),
		)
		res.Counters.CIAErr++
		enter(logger, res, StateBuildFailed)
		return finish(res, started)
	}
	logger.Info("decrypting CIA file succeeded", logging.String("output", filepath.Base(res.Output)))
	p.countSuccess(res)
	enter(logger, res, StateSucceeded)
	return finish(res, started)
}

// countSuccess counts a CIA output unless the conversion batch will count it.
func (p *Pipeline) countSuccess(res *Result) {
	if !p.convertPending {
		res.Counters.Final++
	}
}
