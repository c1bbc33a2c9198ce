package pipeline

import (
	"context"
	"log/slog"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/reassembly"
	"ctrdecrypt/internal/services"
	"ctrdecrypt/internal/services/makerom"
	"ctrdecrypt/internal/title"
	"ctrdecrypt/internal/workspace"
)

// enter logs a state transition.
func enter(logger *slog.Logger, res *Result, state State) {
	res.State = state
	logger.Debug("state entered",
		logging.String(logging.FieldEventType, "state_entered"),
		logging.String(logging.FieldStage, string(state)),
	)
}

// inspect runs the inspector and keeps its report in the workspace.
func inspect(ctx context.Context, logger *slog.Logger, tools toolset, ws *workspace.Workspace, input string) (string, error) {
	result, err := tools.inspector.Inspect(stageContext(ctx, StateStart), ws.Dir, ws.SeedDB, input)
	logTool(logger, "inspector", result, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return result.Output, nil
}

// buildPlan describes how decrypted fragments become builder inputs.
type buildPlan struct {
	request  makerom.BuildRequest
	strategy func(ws *workspace.Workspace) (reassembly.Strategy, error)
}

// decryptAndBuild runs the decrypt, reassemble, build and verify states.
// It reports whether the expected output exists afterwards.
func decryptAndBuild(ctx context.Context, logger *slog.Logger, tools toolset, ws *workspace.Workspace, res *Result, input string, plan buildPlan) (bool, error) {
	enter(logger, res, StateDecrypt)
	result, err := tools.decryptor.Decrypt(stageContext(ctx, StateDecrypt), ws.Dir, input)
	logTool(logger, "decryptor", result, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	enter(logger, res, StateReassemble)
	if _, err := reassembly.MarkPending(ws.Dir); err != nil {
		return false, services.Wrap(services.ErrExternalTool, string(StateReassemble), "mark fragments", "could not rename decrypted fragments", err)
	}
	fragments, err := reassembly.Discover(ws.Dir)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, string(StateReassemble), "discover fragments", "could not list decrypted fragments", err)
	}
	if len(fragments) == 0 {
		logging.WarnWithContext(logger, "decryptor left no fragments", "no_fragments",
			logging.String(logging.FieldErrorHint, "check that the seed database and input file are valid"),
			logging.String(logging.FieldImpact, "builder runs without inputs and is expected to fail"),
		)
	}
	for _, frag := range fragments {
		ok, probeErr := reassembly.HasNCCHMagic(frag.Path)
		if probeErr == nil && !ok {
			logging.WarnWithContext(logger, "fragment lacks NCCH header", "fragment_unrecognized",
				logging.String("fragment", frag.Name()),
				logging.String(logging.FieldImpact, "fragment is passed to the builder unchanged"),
			)
		}
	}

	strategy, err := plan.strategy(ws)
	if err != nil {
		return false, services.Wrap(services.ErrValidation, string(StateReassemble), "plan reassembly", "could not read the content report", err)
	}
	entries := strategy.Plan(fragments)
	req := plan.request
	req.Inputs = make([]makerom.Input, 0, len(entries))
	for _, entry := range entries {
		req.Inputs = append(req.Inputs, makerom.Input{Path: entry.Fragment.Path, Slot: entry.Slot, Index: entry.Index})
	}
	logger.Debug("reassembly planned",
		logging.String("strategy", strategy.Name()),
		logging.Int("fragments", len(entries)),
	)

	enter(logger, res, StateBuild)
	result, err = tools.builder.Build(stageContext(ctx, StateBuild), ws.Dir, req)
	logTool(logger, "builder", result, err)
	if cleanErr := reassembly.Clean(ws.Dir); cleanErr != nil {
		logger.Debug("fragment cleanup incomplete", logging.Error(cleanErr))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	enter(logger, res, StateVerify)
	return fileutil.Exists(req.Output), nil
}

func recordAttrs(rec title.Record) []logging.Attr {
	return []logging.Attr{
		logging.String("title_id", rec.TitleID),
		logging.String("version", rec.Version),
	}
}
