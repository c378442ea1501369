package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/dshills/codeaudit/internal/cache"
	"github.com/dshills/codeaudit/internal/providers"
	"github.com/dshills/codeaudit/internal/redact"
	"github.com/dshills/codeaudit/internal/retry"
	"github.com/dshills/codeaudit/internal/sink"
	"github.com/dshills/codeaudit/internal/source"
	"github.com/dshills/codeaudit/internal/telemetry"
)

// Options are the per-run knobs.
type Options struct {
	Root        string
	MaxTokens   int
	Temperature float64
	// Pause is slept between two files.
	Pause      time.Duration
	Guidelines *analysis.Guidelines
	Redact     redact.Policy
}

// Runner analyzes a source tree one file at a time. Provider and Enumerator
// are required; the rest are optional.
type Runner struct {
	Provider   providers.Provider
	Enumerator *source.Enumerator
	Retry      *retry.Controller
	Cache      *cache.Cache
	Sink       *sink.Store
	Telemetry  *telemetry.Recorder
	Progress   Progress
	Logger     *zap.Logger
	Options    Options

	// sleep replaces the pause between files. Used by tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Result is what a run produced.
type Result struct {
	State   RunState
	Metrics []analysis.MetricRecord
	Issues  []analysis.IssueRecord
}

// Run walks the tree and analyzes every eligible file in order. Per-file
// failures are logged and counted, never returned. An error is returned
// only when the root cannot be read or ctx is cancelled; in the latter case
// the records gathered so far are returned too.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Provider == nil || r.Enumerator == nil {
		return nil, fmt.Errorf("runner needs a provider and an enumerator")
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	controller := r.Retry
	if controller == nil {
		controller = retry.New(retry.DefaultPolicy(), logger)
	}
	progress := r.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	now := r.now
	if now == nil {
		now = time.Now
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	state := RunState{RunID: uuid.NewString(), Started: now()}
	logger = logger.With(zap.String("run_id", state.RunID),
		zap.String("provider", r.Provider.Name()),
		zap.String("model", r.Provider.Model()))

	total, err := r.Enumerator.Count(r.Options.Root)
	if err != nil {
		return nil, err
	}
	state.Total = total
	agg := NewAggregator(&state)

	if err := r.Sink.BeginRun(ctx, sink.Run{
		ID:       state.RunID,
		Provider: r.Provider.Name(),
		Model:    r.Provider.Model(),
		Root:     r.Options.Root,
		Started:  state.Started,
	}); err != nil {
		logger.Warn("sink unavailable", zap.Error(err))
	}

	logger.Info("run started", zap.String("root", r.Options.Root), zap.Int("files", total))
	progress.Start(state)

	index := 0
	for unit, err := range r.Enumerator.Walk(r.Options.Root) {
		if err != nil {
			return nil, err
		}
		index++
		if index > 1 && r.Options.Pause > 0 {
			if err := sleep(ctx, r.Options.Pause); err != nil {
				return r.finish(ctx, logger, progress, state, agg), err
			}
		}
		progress.File(index, state, unit.Name)

		if err := r.analyze(ctx, logger, controller, &state, agg, unit); err != nil {
			return r.finish(ctx, logger, progress, state, agg), err
		}
		state.Processed++
		progress.Done(state)
	}

	return r.finish(ctx, logger, progress, state, agg), nil
}

// analyze runs one file through load, redact, prompt, cache, retry, parse
// and aggregate. It only returns an error when ctx is done.
func (r *Runner) analyze(ctx context.Context, logger *zap.Logger, controller *retry.Controller, state *RunState, agg *Aggregator, unit source.Unit) error {
	log := logger.With(zap.String("path", unit.Path))

	unit, err := source.Load(unit)
	if err != nil {
		log.Warn("skipping unreadable file", zap.Error(err))
		state.Skipped++
		r.Telemetry.File(telemetry.OutcomeSkipped)
		return nil
	}

	code, withheld := r.Options.Redact.Apply(unit.Content, unit.Name)
	if withheld {
		log.Info("file content withheld by redact policy")
	}
	prompt := analysis.BuildPrompt(analysis.PromptInput{
		Name:       unit.Name,
		Language:   source.Language(unit.Name),
		Code:       code,
		Guidelines: r.Options.Guidelines,
	})
	unit.Content = ""

	key := cache.BuildKey(r.Provider.Name(), r.Provider.Model(), prompt)
	outcome := telemetry.OutcomeAnalyzed
	text, hit := "", false
	if r.Cache != nil {
		text, hit = r.Cache.Get(key)
	}
	if hit {
		outcome = telemetry.OutcomeCached
		state.Cached++
		log.Debug("cache hit")
	} else {
		started := time.Now()
		out, err := controller.Do(ctx, func(ctx context.Context) (string, error) {
			resp, err := r.Provider.Submit(ctx, providers.Request{
				Prompt:      prompt,
				MaxTokens:   r.Options.MaxTokens,
				Temperature: r.Options.Temperature,
			})
			r.Telemetry.Tokens(resp.TokensUsed)
			return resp.Content, err
		})
		r.Telemetry.Attempts(out.Attempts, err == nil)
		r.Telemetry.ObserveAnalysis(time.Since(started))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("no reply for file, moving on", zap.Int("attempts", out.Attempts), zap.Error(err))
			state.Failed++
			r.Telemetry.File(telemetry.OutcomeFailed)
			return nil
		}
		text = out.Text
		if r.Cache != nil {
			if err := r.Cache.Put(key, cache.Meta{Provider: r.Provider.Name(), Model: r.Provider.Model(), File: unit.Name}, text); err != nil {
				log.Warn("caching reply failed", zap.Error(err))
			}
		}
	}

	res := agg.Add(unit, analysis.Parse(text, r.Provider.Framing(), log))
	if res.Empty() {
		outcome = telemetry.OutcomeEmpty
	}
	r.Telemetry.File(outcome)
	r.Telemetry.Records(len(res.Metrics), len(res.Issues))

	if err := r.Sink.Append(ctx, state.RunID, res.Metrics, res.Issues); err != nil {
		log.Warn("sink append failed", zap.Error(err))
	}
	log.Debug("file analyzed", zap.Int("metrics", len(res.Metrics)), zap.Int("issues", len(res.Issues)))
	return nil
}

func (r *Runner) finish(ctx context.Context, logger *zap.Logger, progress Progress, state RunState, agg *Aggregator) *Result {
	finished := time.Now()
	if r.now != nil {
		finished = r.now()
	}
	if err := r.Sink.EndRun(context.WithoutCancel(ctx), state.RunID, finished, state.Processed); err != nil {
		logger.Warn("sink run end failed", zap.Error(err))
	}
	logger.Info("run finished",
		zap.Int("processed", state.Processed),
		zap.Int("failed", state.Failed),
		zap.Int("skipped", state.Skipped),
		zap.Int("metrics", state.Metrics),
		zap.Int("issues", state.Issues),
		zap.Duration("elapsed", finished.Sub(state.Started)))
	progress.Finish(state)
	return &Result{State: state, Metrics: agg.Metrics(), Issues: agg.Issues()}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
