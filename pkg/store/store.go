// Package store holds the loaded datasets, the global key and ignored field
// sets and the comparison results derived from them.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/diff"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/keys"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Input is a dataset as handed over by a loader, before configuration.
type Input struct {
	Owner     core.Owner
	Source    *string
	Name      string
	ShortName string
	Records   []record.Value

	// Configuration seeds field discovery. Nil discovers every field.
	Configuration *core.Configuration
}

// Options configures a Store.
type Options struct {
	// Diff tunes the engine used for comparisons.
	Diff diff.Options

	// Debounce delays diff recomputation after field set mutations so bursts
	// of moves cost a single recompute. Zero recomputes synchronously.
	Debounce time.Duration
}

// Comparison names the selected start and end datasets.
type Comparison struct {
	Start core.Owner `json:"start"`
	End   core.Owner `json:"end"`
}

// Store is safe for concurrent use. Accessors return copies, so callers never
// observe a dataset while it is being rebuilt.
type Store struct {
	mu         sync.RWMutex
	datasets   map[core.Owner]*core.Dataset
	order      []core.Owner
	diffs      map[Comparison]*core.DiffResult
	sel        fieldset.Selection
	comparison *Comparison
	controls   record.Value

	engine   *diff.Engine
	debounce *Debouncer
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an empty store.
func New(opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		datasets: make(map[core.Owner]*core.Dataset),
		diffs:    make(map[Comparison]*core.DiffResult),
		engine:   diff.NewEngine(opts.Diff, logger.Named("diff")),
		logger:   logger,
		now:      time.Now,
	}
	if opts.Debounce > 0 {
		s.debounce = NewDebouncer(opts.Debounce, s.recompute)
	}
	return s
}

// Close stops any pending debounced recompute.
func (s *Store) Close() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
}

// Configure turns an input into a fully derived dataset under sel. Key and
// ignored fields seed discovery so they are known fields even when no record
// carries them.
func Configure(in Input, sel fieldset.Selection, now time.Time) (*core.Dataset, error) {
	if in.Configuration != nil {
		if err := schema.NewValidator().Validate(*in.Configuration).Err(); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", in.Owner, err)
		}
	}
	for i, rec := range in.Records {
		if !rec.IsObject() {
			return nil, core.MalformedInput("dataset %s: record %d is a %s, not an object", in.Owner, i, rec.Kind())
		}
	}

	records := in.Records
	if records == nil {
		records = []record.Value{}
	}
	cfg := schema.Discover(records, in.Configuration, sel.Key, sel.Ignored)
	ds := &core.Dataset{
		Owner:         in.Owner,
		Source:        in.Source,
		Name:          in.Name,
		ShortName:     in.ShortName,
		Records:       records,
		Configuration: cfg,
		Values:        schema.BuildValues(cfg, records),
		LastUpdated:   &now,
	}
	keys.Apply(ds, sel.Key)
	return ds, nil
}

// SetDataset configures and stores one dataset, replacing any dataset of the
// same owner. Its fetching flag is cleared.
func (s *Store) SetDataset(in Input) (*core.Dataset, error) {
	s.mu.RLock()
	sel := s.sel.Clone()
	s.mu.RUnlock()

	ds, err := Configure(in, sel, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// The selection may have moved while configuring.
	keys.Apply(ds, s.sel.Key)
	s.putLocked(ds)
	deferred := s.invalidateLocked()
	out := cloneDataset(ds)
	s.mu.Unlock()

	s.logger.Info("dataset set",
		zap.Stringer("owner", ds.Owner),
		zap.String("name", ds.Name),
		zap.Int("records", len(ds.Records)),
		zap.Int("fields", len(ds.Configuration.Fields)),
	)
	s.afterMutation(deferred)
	return out, nil
}

// SetDatasets configures a batch concurrently and stores it atomically: if
// any input fails, nothing is stored. When sel is non-nil it replaces the
// current key and ignored sets before configuring.
func (s *Store) SetDatasets(ctx context.Context, inputs []Input, sel *fieldset.Selection) error {
	s.mu.RLock()
	active := s.sel.Clone()
	s.mu.RUnlock()
	if sel != nil {
		active = sel.Clone()
	}

	now := s.now()
	built := make([]*core.Dataset, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, err := Configure(inputs[i], active, now)
			if err != nil {
				return err
			}
			built[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	if sel != nil {
		s.sel = active
	}
	for _, ds := range built {
		keys.Apply(ds, s.sel.Key)
		s.putLocked(ds)
	}
	if sel != nil {
		s.refreshKeyCountsLocked()
	}
	deferred := s.invalidateLocked()
	s.mu.Unlock()

	s.logger.Info("datasets set", zap.Int("count", len(built)))
	s.afterMutation(deferred)
	return nil
}

func (s *Store) putLocked(ds *core.Dataset) {
	if _, ok := s.datasets[ds.Owner]; !ok {
		s.order = append(s.order, ds.Owner)
	}
	s.datasets[ds.Owner] = ds
}

// Dataset returns a copy of the dataset of owner.
func (s *Store) Dataset(owner core.Owner) (*core.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[owner]
	if !ok {
		return nil, false
	}
	return cloneDataset(ds), true
}

// Datasets returns copies of every dataset in load order.
func (s *Store) Datasets() []*core.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Dataset, 0, len(s.order))
	for _, owner := range s.order {
		out = append(out, cloneDataset(s.datasets[owner]))
	}
	return out
}

// Owners returns the owner ids in load order.
func (s *Store) Owners() []core.Owner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Owner(nil), s.order...)
}

// RemoveDataset drops a dataset together with every diff naming it. A
// comparison that involved it is cleared.
func (s *Store) RemoveDataset(owner core.Owner) bool {
	s.mu.Lock()
	if _, ok := s.datasets[owner]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.datasets, owner)
	for i, o := range s.order {
		if o == owner {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for pair := range s.diffs {
		if pair.Start == owner || pair.End == owner {
			delete(s.diffs, pair)
		}
	}
	if s.comparison != nil && (s.comparison.Start == owner || s.comparison.End == owner) {
		s.comparison = nil
	}
	s.mu.Unlock()

	s.logger.Info("dataset removed", zap.Stringer("owner", owner))
	return true
}

// SetFiltered stores a filtered overlay for owner. Comparisons ignore it.
func (s *Store) SetFiltered(owner core.Owner, filtered []record.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[owner]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownDataset, owner)
	}
	next := *ds
	next.Filtered = filtered
	s.datasets[owner] = &next
	return nil
}

// RemoveFiltered clears the filtered overlay of owner.
func (s *Store) RemoveFiltered(owner core.Owner) error {
	return s.SetFiltered(owner, nil)
}

// SetIsFetching flags owner as being refreshed from its source.
func (s *Store) SetIsFetching(owner core.Owner, fetching bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[owner]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownDataset, owner)
	}
	next := *ds
	next.IsFetching = fetching
	s.datasets[owner] = &next
	return nil
}

// IsFetching reports the fetching flag of owner.
func (s *Store) IsFetching(owner core.Owner) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[owner]
	return ok && ds.IsFetching
}

// Configuration returns the configuration of owner.
func (s *Store) Configuration(owner core.Owner) (core.Configuration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[owner]
	if !ok {
		return core.Configuration{}, false
	}
	return core.Configuration{Fields: append([]core.FieldDescriptor(nil), ds.Configuration.Fields...)}, true
}

// Values returns the value index of owner.
func (s *Store) Values(owner core.Owner) (core.Values, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[owner]
	if !ok {
		return nil, false
	}
	return cloneValues(ds.Values), true
}

// MergedConfiguration merges the configuration of every dataset in load
// order.
func (s *Store) MergedConfiguration() core.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.MergeConfigurations(s.orderedLocked())
}

// MergedValues merges the value index of every dataset.
func (s *Store) MergedValues() core.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.MergeValues(s.orderedLocked())
}

// Union concatenates the records of start and end. Unknown owners
// contribute nothing.
func (s *Store) Union(start, end core.Owner) []record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return diff.Union(s.datasets[start], s.datasets[end])
}

// SetDiff publishes a diff result, replacing any result of the same pair.
func (s *Store) SetDiff(result *core.DiffResult) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffs[Comparison{Start: result.Start, End: result.End}] = result
}

// RemoveDiff deletes the result of the pair.
func (s *Store) RemoveDiff(start, end core.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.diffs, Comparison{Start: start, End: end})
}

// Diff returns the published result of the pair.
func (s *Store) Diff(start, end core.Owner) (*core.DiffResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.diffs[Comparison{Start: start, End: end}]
	return result, ok
}

// Compare runs the engine for the pair with the current selection and
// publishes the result. Unknown owners count as missing counterparts.
func (s *Store) Compare(ctx context.Context, start, end core.Owner) (*core.DiffResult, error) {
	s.mu.RLock()
	startDS, endDS := s.datasets[start], s.datasets[end]
	cfg := schema.MergeConfigurations(s.orderedLocked())
	sel := s.sel.Clone()
	s.mu.RUnlock()

	result, err := s.engine.Diff(ctx, startDS, endDS, cfg, sel)
	if err != nil {
		return nil, err
	}
	result.Start, result.End = start, end

	s.mu.Lock()
	s.diffs[Comparison{Start: start, End: end}] = result
	s.mu.Unlock()
	return result, nil
}

// SelectComparison sets the start and end datasets and computes their diff.
func (s *Store) SelectComparison(ctx context.Context, start, end core.Owner) (*core.DiffResult, error) {
	s.mu.Lock()
	for _, owner := range []core.Owner{start, end} {
		if _, ok := s.datasets[owner]; !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownDataset, owner)
		}
	}
	s.comparison = &Comparison{Start: start, End: end}
	s.mu.Unlock()

	return s.Compare(ctx, start, end)
}

// ClearComparison deselects the comparison and drops its diff.
func (s *Store) ClearComparison() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comparison != nil {
		delete(s.diffs, *s.comparison)
	}
	s.comparison = nil
}

// SelectedComparison returns the selected pair, if any.
func (s *Store) SelectedComparison() (Comparison, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.comparison == nil {
		return Comparison{}, false
	}
	return *s.comparison, true
}

// Membership classifies the identities unique to either side of the pair
// under the current key fields.
func (s *Store) Membership(start, end core.Owner) core.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return diff.Classify(s.datasets[start], s.datasets[end], s.sel.Key)
}

// Selection returns a copy of the key and ignored sets.
func (s *Store) Selection() fieldset.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel.Clone()
}

// KeyFields returns the key field set.
func (s *Store) KeyFields() fieldset.FieldSet {
	return s.Selection().Key
}

// IgnoredFields returns the ignored field set.
func (s *Store) IgnoredFields() fieldset.FieldSet {
	return s.Selection().Ignored
}

// SetKeyFields replaces the key field set. A field also present in the
// ignored set is left there; callers move fields with MoveField to keep the
// sets disjoint.
func (s *Store) SetKeyFields(fields []core.FieldDescriptor) {
	s.mu.Lock()
	s.sel.Key = fieldset.FieldSet(fields).Clone()
	s.refreshKeyCountsLocked()
	deferred := s.invalidateLocked()
	s.mu.Unlock()
	s.afterMutation(deferred)
}

// SetIgnoredFields replaces the ignored field set.
func (s *Store) SetIgnoredFields(fields []core.FieldDescriptor) {
	s.mu.Lock()
	s.sel.Ignored = fieldset.FieldSet(fields).Clone()
	deferred := s.invalidateLocked()
	s.mu.Unlock()
	s.afterMutation(deferred)
}

// MoveField moves fieldID into target at index. The field is looked up in
// the merged configuration.
func (s *Store) MoveField(fieldID string, target fieldset.Target, index int) (fieldset.Changes, error) {
	s.mu.Lock()
	cfg := schema.MergeConfigurations(s.orderedLocked())
	next, changes, err := s.sel.Move(cfg, fieldID, target, index)
	if err != nil {
		s.mu.Unlock()
		return changes, err
	}
	deferred := s.applyLocked(next, changes)
	s.mu.Unlock()

	s.logger.Debug("field moved",
		zap.String("field", fieldID),
		zap.String("target", string(target)),
		zap.Int("index", index),
		zap.Bool("changed", changes.Any()),
	)
	s.afterMutation(deferred)
	return changes, nil
}

// RemoveField drops fieldID from both sets.
func (s *Store) RemoveField(fieldID string) fieldset.Changes {
	s.mu.Lock()
	next, changes := s.sel.Remove(fieldID)
	deferred := s.applyLocked(next, changes)
	s.mu.Unlock()

	s.afterMutation(deferred)
	return changes
}

func (s *Store) applyLocked(next fieldset.Selection, changes fieldset.Changes) bool {
	if !changes.Any() {
		return false
	}
	s.sel = next
	if changes.Key {
		s.refreshKeyCountsLocked()
	}
	return s.invalidateLocked()
}

// KeyInfo reports key statistics for every dataset in load order.
func (s *Store) KeyInfo() []core.KeyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.KeyInfo, 0, len(s.order))
	for _, owner := range s.order {
		ds := s.datasets[owner]
		out = append(out, core.KeyInfo{
			Owner:          ds.Owner,
			Name:           ds.Name,
			KeyCount:       ds.KeyCount,
			UniqueKeyCount: ds.UniqueKeyCount,
			DuplicateCount: ds.DuplicateCount(),
		})
	}
	return out
}

// AvailableFields lists the groupable merged fields in neither set.
func (s *Store) AvailableFields() []core.FieldDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel.Available(schema.MergeConfigurations(s.orderedLocked()))
}

// SetControls stores the opaque presentation controls carried by documents.
func (s *Store) SetControls(controls record.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = controls
}

// Controls returns the stored controls, an empty object when none are set.
func (s *Store) Controls() record.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.controls.IsObject() {
		return record.NewObject()
	}
	return s.controls
}

// Flush runs a pending debounced recompute immediately.
func (s *Store) Flush() {
	if s.debounce != nil {
		s.debounce.Flush()
	}
}

func (s *Store) orderedLocked() []*core.Dataset {
	out := make([]*core.Dataset, 0, len(s.order))
	for _, owner := range s.order {
		out = append(out, s.datasets[owner])
	}
	return out
}

// refreshKeyCountsLocked rebuilds every dataset's key statistics. Datasets
// are replaced rather than mutated so published copies stay consistent.
func (s *Store) refreshKeyCountsLocked() {
	for owner, ds := range s.datasets {
		next := *ds
		keys.Apply(&next, s.sel.Key)
		s.datasets[owner] = &next
	}
}

// invalidateLocked drops every published diff computed under the previous
// datasets or selection. The selected comparison is recomputed in place, or
// the call reports that a debounced recompute must be scheduled once the
// lock is released. Until then no stale result is served.
func (s *Store) invalidateLocked() bool {
	for pair := range s.diffs {
		if s.comparison == nil || pair != *s.comparison || s.debounce != nil {
			delete(s.diffs, pair)
		}
	}
	if s.comparison == nil {
		return false
	}
	if s.debounce != nil {
		return true
	}
	s.recomputeLocked(context.Background())
	return false
}

func (s *Store) afterMutation(deferred bool) {
	if deferred {
		s.debounce.Trigger()
	}
}

func (s *Store) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked(context.Background())
}

func (s *Store) recomputeLocked(ctx context.Context) {
	if s.comparison == nil {
		return
	}
	pair := *s.comparison
	cfg := schema.MergeConfigurations(s.orderedLocked())
	result, err := s.engine.Diff(ctx, s.datasets[pair.Start], s.datasets[pair.End], cfg, s.sel)
	if err != nil {
		s.logger.Error("diff recompute failed", zap.Error(err))
		return
	}
	result.Start, result.End = pair.Start, pair.End
	s.diffs[pair] = result
}

func cloneDataset(ds *core.Dataset) *core.Dataset {
	out := *ds
	out.Configuration = core.Configuration{Fields: append([]core.FieldDescriptor(nil), ds.Configuration.Fields...)}
	out.Values = cloneValues(ds.Values)
	return &out
}

func cloneValues(v core.Values) core.Values {
	out := make(core.Values, len(v))
	for id, values := range v {
		out[id] = append([]record.Value(nil), values...)
	}
	return out
}
