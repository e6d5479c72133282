// Package diff provides the field-level comparison of two datasets.
package diff

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/keys"
	"github.com/TFMV/vantage/pkg/record"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tunes how the engine schedules record comparisons. Results are
// identical whichever options are used.
type Options struct {
	// Parallel compares matched records on a worker pool.
	Parallel bool

	// NumWorkers bounds the pool. If 0, defaults to the number of CPUs.
	NumWorkers int
}

// Engine computes DiffResults. It holds no state between calls.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates a diff engine.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

// match pairs the last start record and the last end record of one hash.
// Matches are emitted at the first position the hash takes in start.
type match struct {
	key        string
	start, end record.Value
}

// Diff compares start and end under the given merged configuration and
// field selection. Identities present on one side only are not reported. A
// nil start or end yields an empty result.
func (e *Engine) Diff(ctx context.Context, start, end *core.Dataset, cfg core.Configuration, sel fieldset.Selection) (*core.DiffResult, error) {
	result := &core.DiffResult{Differences: []core.DiffEntry{}}
	if start != nil {
		result.Start = start.Owner
	}
	if end != nil {
		result.End = end.Owner
	}
	if start == nil || end == nil {
		e.logger.Debug("diff skipped, missing counterpart")
		return result, nil
	}

	began := time.Now()
	matches := e.matchRecords(start.Records, end.Records, sel.Key)
	compare := ComparableFields(cfg, sel)

	entries := make([]*core.DiffEntry, len(matches))
	if e.opts.Parallel && len(matches) > 1 {
		workers := e.opts.NumWorkers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range matches {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				entries[i] = compareMatch(matches[i], compare)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("error during parallel record comparison: %w", err)
		}
	} else {
		for i := range matches {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			entries[i] = compareMatch(matches[i], compare)
		}
	}

	for _, entry := range entries {
		if entry != nil {
			result.Differences = append(result.Differences, *entry)
		}
	}

	e.logger.Debug("diff computed",
		zap.Int("start_records", len(start.Records)),
		zap.Int("end_records", len(end.Records)),
		zap.Int("matched", len(matches)),
		zap.Int("changed", len(result.Differences)),
		zap.Int("compared_fields", len(compare)),
		zap.Duration("elapsed", time.Since(began)),
	)
	return result, nil
}

// matchRecords builds the hash maps of both sides and returns the shared
// identities in start record order. Within one side the last record of a
// colliding hash wins.
func (e *Engine) matchRecords(start, end []record.Value, keyFields []core.FieldDescriptor) []match {
	startHashes := keys.HashAll(start, keyFields)
	startByHash := make(map[string]record.Value, len(start))
	for i, h := range startHashes {
		startByHash[h] = start[i]
	}
	endByHash := make(map[string]record.Value, len(end))
	for _, rec := range end {
		endByHash[keys.Hash(rec, keyFields)] = rec
	}

	emitted := make(map[string]struct{}, len(startHashes))
	var out []match
	for _, h := range startHashes {
		if _, done := emitted[h]; done {
			continue
		}
		endRec, ok := endByHash[h]
		if !ok {
			continue
		}
		emitted[h] = struct{}{}
		out = append(out, match{key: h, start: startByHash[h], end: endRec})
	}
	return out
}

// ComparableFields returns the fields of cfg that are neither key nor ignored.
func ComparableFields(cfg core.Configuration, sel fieldset.Selection) []core.FieldDescriptor {
	out := make([]core.FieldDescriptor, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if sel.Excludes(f.ID()) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func compareMatch(m match, fields []core.FieldDescriptor) *core.DiffEntry {
	var diffs []core.FieldDiff
	for _, f := range fields {
		sv, _ := m.start.Get(f.Path)
		ev, _ := m.end.Get(f.Path)
		if record.Equal(sv, ev) {
			continue
		}
		diffs = append(diffs, core.FieldDiff{Field: f, StartValue: sv, EndValue: ev})
	}
	if len(diffs) == 0 {
		return nil
	}
	return &core.DiffEntry{Key: m.key, Fields: diffs}
}
