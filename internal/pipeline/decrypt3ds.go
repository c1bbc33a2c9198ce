package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/reassembly"
	"ctrdecrypt/internal/services/makerom"
	"ctrdecrypt/internal/title"
	"ctrdecrypt/internal/workspace"
)

// Output3DS names the decrypted cartridge image for a 3DS input.
func Output3DS(input string) string {
	stem, _ := outputStem(input)
	return filepath.Join(filepath.Dir(input), stem+"-decrypted.cci")
}

// Decrypt3DS decrypts one cartridge image and rebuilds it as CCI.
func (p *Pipeline) Decrypt3DS(ctx context.Context, ws *workspace.Workspace, input string) (Result, error) {
	started := time.Now()
	logger := p.taskLogger(ctx, Batch3DS, input)
	res := &Result{Input: input, Batch: Batch3DS}
	enter(logger, res, StateStart)

	if _, decrypted := outputStem(input); decrypted {
		enter(logger, res, StateSkipped)
		return finish(res, started), nil
	}
	res.Output = Output3DS(input)
	if fileutil.Exists(res.Output) {
		logging.WarnWithContext(logger, "3DS file was already decrypted", "already_decrypted",
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
	report, err := inspect(ctx, logger, tools, ws, input)
	if err != nil {
		return finish(res, started), err
	}
	res.Record = title.Parse(report, title.DialectDefault)
	logger = logger.With(logging.Args(recordAttrs(res.Record)...)...)

	if res.Record.Unencrypted() {
		logging.WarnWithContext(logger, "3DS file is not encrypted", "not_encrypted",
			logging.String(logging.FieldErrorHint, "the image needs no decryption"),
			logging.String(logging.FieldImpact, "counted as a 3DS error"),
		)
		res.Counters.DSErr++
		enter(logger, res, StateNotEncrypted)
		return finish(res, started), nil
	}

	ok, err := decryptAndBuild(ctx, logger, tools, ws, res, input, buildPlan{
		request: makerom.BuildRequest{Format: makerom.FormatCCI, Output: res.Output},
		strategy: func(*workspace.Workspace) (reassembly.Strategy, error) {
			return reassembly.FixedMapping{}, nil
		},
	})
	if err != nil {
		return finish(res, started), err
	}
	if !ok {
		logging.ErrorWithContext(logger, "decrypting 3DS file failed", "build_failed",
			logging.String(logging.FieldErrorHint, fmt.Sprintf("builder produced no %s", filepath.Base(res.Output))),
		)
		res.Counters.DSErr++
		enter(logger, res, StateBuildFailed)
		return finish(res, started), nil
	}
	logger.Info("decrypting 3DS file succeeded", logging.String("output", filepath.Base(res.Output)))
	res.Counters.Final++
	enter(logger, res, StateSucceeded)
	return finish(res, started), nil
}
