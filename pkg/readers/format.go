package readers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/notes"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/store"
	"github.com/google/uuid"
)

// Request describes one loaded document and how to interpret it.
type Request struct {
	// Owner receives the dataset of single-dataset documents. Zero picks a
	// fresh owner.
	Owner     core.Owner
	Name      string
	ShortName string
	Source    *string
	Content   record.Value

	// Include flags. Nil means the default: data is included, controls and
	// notes are not.
	IncludeData     *bool
	IncludeControls *bool
	IncludeNotes    *bool
}

// Payload is a normalized document ready to be stored.
type Payload struct {
	Datasets []store.Input

	// Selection is non-nil when the document carries key or ignored fields.
	Selection *fieldset.Selection

	// Controls and Notes are always objects, empty unless included.
	Controls record.Value
	Notes    record.Value
}

// Format normalizes the accepted document shapes:
//
//	{"datasets": {"<owner>": {"dataset": [...], "configuration": {...}, "name": ..., "shortName": ..., "source": ...}}}
//	{"dataset": [...], "configuration": {...}}
//	[...]            a naked record array
//	{...}            a single record
//
// Anything else yields core.ErrMalformedInput.
func Format(req Request) (*Payload, error) {
	content := req.Content
	entries, err := datasetEntries(req, content)
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		Datasets: []store.Input{},
		Controls: record.NewObject(),
		Notes:    record.NewObject(),
	}

	if flag(req.IncludeData, true) {
		for i, entry := range entries {
			in, err := entry.input(req, i)
			if err != nil {
				return nil, err
			}
			payload.Datasets = append(payload.Datasets, in)
		}
		sel, err := selectionOf(content)
		if err != nil {
			return nil, err
		}
		payload.Selection = sel
	}
	if flag(req.IncludeControls, false) {
		if v, ok := content.Field("controls"); ok && v.IsObject() {
			payload.Controls = v
		}
	}
	if flag(req.IncludeNotes, false) {
		if v, ok := content.Field("notes"); ok && v.IsObject() {
			// Rejected here so a bad notes member never follows a stored dataset.
			if err := notes.Validate(v); err != nil {
				return nil, err
			}
			payload.Notes = v
		}
	}
	return payload, nil
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type entry struct {
	owner  core.Owner
	fields record.Value // the per-dataset envelope, or Missing
	data   record.Value
}

func datasetEntries(req Request, content record.Value) ([]entry, error) {
	owner := req.Owner
	if owner == uuid.Nil {
		owner = uuid.New()
	}

	if datasets, ok := content.Field("datasets"); ok && !isNil(datasets) {
		if !datasets.IsObject() {
			return nil, core.MalformedInput("datasets must be an object keyed by owner")
		}
		out := make([]entry, 0, datasets.Len())
		for _, key := range datasets.Keys() {
			env, _ := datasets.Field(key)
			if !env.IsObject() {
				return nil, core.MalformedInput("dataset %q is not an object", key)
			}
			data, _ := env.Field("dataset")
			out = append(out, entry{owner: ParseOwner(key), fields: env, data: data})
		}
		return out, nil
	}

	switch {
	case content.IsArray():
		return []entry{{owner: owner, data: content}}, nil
	case content.IsObject():
		if data, ok := content.Field("dataset"); ok && !isNil(data) {
			if !data.IsArray() {
				return nil, core.MalformedInput("dataset must be an array of records")
			}
			return []entry{{owner: owner, fields: content, data: data}}, nil
		}
		return []entry{{owner: owner, data: record.ArrayValue(content)}}, nil
	}
	return nil, core.MalformedInput("data in invalid format: expected an array or an object, got %s", content.Kind())
}

func (e entry) input(req Request, idx int) (store.Input, error) {
	if !e.data.IsArray() {
		return store.Input{}, core.MalformedInput("dataset %s must be an array of records", e.owner)
	}
	records := e.data.Items()
	for i, rec := range records {
		if !rec.IsObject() {
			return store.Input{}, core.MalformedInput("dataset %s: record %d is a %s, not an object", e.owner, i, rec.Kind())
		}
	}

	in := store.Input{
		Owner:   e.owner,
		Records: append([]record.Value(nil), records...),
		Source:  req.Source,
	}

	in.Name = stringField(e.fields, "name")
	if in.Name == "" {
		in.Name = req.Name
	}
	if in.Name == "" {
		in.Name = "Series " + strconv.Itoa(idx)
	}
	in.ShortName = stringField(e.fields, "shortName")
	if in.ShortName == "" {
		in.ShortName = req.ShortName
	}
	if in.ShortName == "" {
		in.ShortName = firstRune(in.Name) + strconv.Itoa(idx)
	}
	if src := stringField(e.fields, "source"); src != "" {
		in.Source = &src
	}

	if raw, ok := e.fields.Field("configuration"); ok && !isNil(raw) {
		var cfg core.Configuration
		if err := decodeInto(raw, &cfg); err != nil {
			return store.Input{}, core.MalformedInput("dataset %s: invalid configuration: %v", e.owner, err)
		}
		in.Configuration = &cfg
	}
	return in, nil
}

func selectionOf(content record.Value) (*fieldset.Selection, error) {
	keyRaw, hasKey := content.Field("keyFields")
	ignRaw, hasIgn := content.Field("ignoredFields")
	hasKey = hasKey && !isNil(keyRaw)
	hasIgn = hasIgn && !isNil(ignRaw)
	if !hasKey && !hasIgn {
		return nil, nil
	}

	sel := &fieldset.Selection{Key: fieldset.FieldSet{}, Ignored: fieldset.FieldSet{}}
	if hasKey {
		if err := decodeInto(keyRaw, &sel.Key); err != nil {
			return nil, core.MalformedInput("invalid keyFields: %v", err)
		}
	}
	if hasIgn {
		if err := decodeInto(ignRaw, &sel.Ignored); err != nil {
			return nil, core.MalformedInput("invalid ignoredFields: %v", err)
		}
	}
	return sel, nil
}

// ParseOwner reads an owner id. Keys that are not UUIDs map to a stable
// name-based UUID so documents from other tools still load.
func ParseOwner(key string) core.Owner {
	if id, err := uuid.Parse(key); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

func decodeInto(v record.Value, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func stringField(v record.Value, key string) string {
	if !v.IsObject() {
		return ""
	}
	f, ok := v.Field(key)
	if !ok || f.Kind() != record.String {
		return ""
	}
	return f.Str()
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func isNil(v record.Value) bool {
	return v.IsMissing() || v.Kind() == record.Null
}

// Describe renders a one-line summary of a payload for logs.
func (p *Payload) Describe() string {
	records := 0
	for _, in := range p.Datasets {
		records += len(in.Records)
	}
	return fmt.Sprintf("%d dataset(s), %d record(s)", len(p.Datasets), records)
}
