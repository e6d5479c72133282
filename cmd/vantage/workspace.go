package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/diff"
	"github.com/TFMV/vantage/pkg/document"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/readers"
	"github.com/TFMV/vantage/pkg/store"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.FgHiBlack).SprintFunc()
)

// selectionFlags are the --key and --ignore flags shared by several commands.
type selectionFlags struct {
	keys    []string
	ignored []string
}

func (a *app) newStore() *store.Store {
	return store.New(store.Options{
		Diff: diff.Options{
			Parallel:   a.cfg.Compare.Parallel,
			NumWorkers: a.cfg.Compare.Workers,
		},
	}, a.logger)
}

// load reads one file into st and returns the owners it produced. A plain
// record file yields one dataset named after the file; an exported document
// yields all of its datasets.
func (a *app) load(ctx context.Context, st *store.Store, path string) ([]core.Owner, error) {
	doc, err := readers.DefaultFactory.Load(ctx, core.ReaderConfig{Path: path})
	if err != nil {
		return nil, err
	}
	source := path
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	payload, err := document.Import(ctx, st, nil, readers.Request{
		Name:    name,
		Source:  &source,
		Content: doc,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	owners := make([]core.Owner, len(payload.Datasets))
	for i, in := range payload.Datasets {
		owners[i] = in.Owner
	}
	a.logger.Debug("file loaded", zap.String("path", path), zap.Int("datasets", len(owners)))
	return owners, nil
}

// loadAll loads every path in order.
func (a *app) loadAll(ctx context.Context, st *store.Store, paths []string) ([]core.Owner, error) {
	var owners []core.Owner
	for _, path := range paths {
		loaded, err := a.load(ctx, st, path)
		if err != nil {
			return nil, err
		}
		owners = append(owners, loaded...)
	}
	return owners, nil
}

// loadOne loads a file that must hold exactly one dataset.
func (a *app) loadOne(ctx context.Context, st *store.Store, path string) (core.Owner, error) {
	owners, err := a.load(ctx, st, path)
	if err != nil {
		return core.Owner{}, err
	}
	if len(owners) != 1 {
		return core.Owner{}, fmt.Errorf("%s: expected one dataset, found %d", path, len(owners))
	}
	return owners[0], nil
}

// apply installs the flag selection, falling back to the configured fields.
// A set given by neither keeps whatever the loaded documents carried.
func (f selectionFlags) apply(st *store.Store, cfgKeys, cfgIgnored []string) {
	merged := st.MergedConfiguration()
	if ids := pick(f.keys, cfgKeys); len(ids) > 0 {
		st.SetKeyFields(fieldset.Resolve(merged, ids))
	}
	if ids := pick(f.ignored, cfgIgnored); len(ids) > 0 {
		st.SetIgnoredFields(fieldset.Resolve(merged, ids))
	}
}

func pick(flag, fallback []string) []string {
	if len(flag) > 0 {
		return flag
	}
	return fallback
}

// startSpinner shows progress on stderr. The spinner stays silent when
// stderr is not a terminal.
func startSpinner(msg string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s
}

func warnAmbiguous(w io.Writer, infos []core.KeyInfo) {
	for _, info := range infos {
		if info.Ambiguous() {
			fmt.Fprintf(w, "%s %s has %d record(s) sharing a key; matches use the last record of each key\n",
				yellow("WARNING:"), info.Name, info.DuplicateCount)
		}
	}
}
