package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/textutil"
	"ctrdecrypt/internal/title"
	"ctrdecrypt/internal/workspace"
)

// OutputCCI names the converted image for a decrypted CIA archive.
func OutputCCI(input string) string {
	return filepath.Join(filepath.Dir(input), textutil.Stem(input)+".cci")
}

// ConvertCIA converts one decrypted CIA archive to CCI. The source archive is
// removed after every attempt, including titles that cannot be converted.
func (p *Pipeline) ConvertCIA(ctx context.Context, ws *workspace.Workspace, input string) (Result, error) {
	started := time.Now()
	logger := p.taskLogger(ctx, BatchConvert, input)
	res := &Result{Input: input, Batch: BatchConvert, Output: OutputCCI(input)}
	enter(logger, res, StateStart)

	if fileutil.Exists(res.Output) {
		logging.WarnWithContext(logger, "CIA file was already converted into CCI", "already_converted",
			logging.String("output", filepath.Base(res.Output)),
			logging.String(logging.FieldImpact, "counted as success without rework"),
		)
		res.Counters.Final++
		enter(logger, res, StateAlreadyDecrypted)
		return finish(res, started), nil
	}

	tools, err := p.tools(ws)
	if err != nil {
		return finish(res, started), err
	}

	enter(logger, res, StateClassify)
	rec, tagged := title.ParseFilenameTag(textutil.Stem(input))
	if !tagged {
		report, err := inspect(ctx, logger, tools, ws, input)
		if err != nil {
			return finish(res, started), err
		}
		rec = title.Parse(report, title.DialectDefault)
	}
	res.Record = rec
	res.Category = title.Classify(rec.UpperID())
	logger = logger.With(logging.Args(recordAttrs(rec)...)...)

	if rec.TitleID != "" && title.UnsupportedForConversion(rec.TitleID) {
		logging.ErrorWithContext(logger, "converting this title to CCI is not supported", "unsupported_title",
			logging.String(logging.FieldErrorHint, "DLC, demos, system titles, TWL titles and updates cannot be converted"),
		)
		removeSource(logger, input)
		res.Counters.CCIErr++
		enter(logger, res, StateUnsupported)
		return finish(res, started), nil
	}

	enter(logger, res, StateBuild)
	result, err := tools.builder.ConvertToCCI(stageContext(ctx, StateBuild), ws.Dir, input, res.Output)
	logTool(logger, "builder", result, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return finish(res, started), ctxErr
	}

	enter(logger, res, StateVerify)
	ok := fileutil.Exists(res.Output)
	removeSource(logger, input)
	if !ok {
		logging.ErrorWithContext(logger, "converting to CCI failed", "build_failed",
			logging.String(logging.FieldErrorHint, "builder produced no "+filepath.Base(res.Output)),
		)
		res.Counters.CCIErr++
		enter(logger, res, StateBuildFailed)
		return finish(res, started), nil
	}
	logger.Info("converting to CCI succeeded", logging.String("output", filepath.Base(res.Output)))
	res.Counters.Final++
	enter(logger, res, StateSucceeded)
	return finish(res, started), nil
}

func removeSource(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "could not remove source archive", "source_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "source archive left in place"),
		)
	}
}
