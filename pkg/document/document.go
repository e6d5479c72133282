// Package document exports the loaded workspace as a portable JSON document
// and loads such documents back.
package document

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TFMV/vantage/pkg/notes"
	"github.com/TFMV/vantage/pkg/readers"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/store"
	"go.uber.org/zap"
)

// Export renders every dataset together with the field sets, controls and
// notes:
//
//	{"datasets": {"<owner>": {"dataset", "configuration", "name", "shortName", "source"}},
//	 "keyFields": [...], "ignoredFields": [...], "controls": {...}, "notes": {...}}
//
// Datasets keep their load order. A nil note store exports no notes.
func Export(s *store.Store, n *notes.Store) (record.Value, error) {
	datasets := record.NewObject()
	for _, ds := range s.Datasets() {
		cfg, err := toValue(ds.Configuration)
		if err != nil {
			return record.Missing, fmt.Errorf("failed to export configuration of %s: %w", ds.Owner, err)
		}
		source := record.NullValue()
		if ds.Source != nil {
			source = record.StringValue(*ds.Source)
		}
		env := record.NewObject().
			With("dataset", record.ArrayValue(ds.Records...)).
			With("configuration", cfg).
			With("name", record.StringValue(ds.Name)).
			With("shortName", record.StringValue(ds.ShortName)).
			With("source", source)
		datasets = datasets.With(ds.Owner.String(), env)
	}

	sel := s.Selection()
	keyFields, err := toValue(sel.Key)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to export key fields: %w", err)
	}
	ignoredFields, err := toValue(sel.Ignored)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to export ignored fields: %w", err)
	}

	noteDoc := record.NewObject()
	if n != nil {
		noteDoc = n.Snapshot()
	}

	return record.NewObject().
		With("datasets", datasets).
		With("keyFields", keyFields).
		With("ignoredFields", ignoredFields).
		With("controls", s.Controls()).
		With("notes", noteDoc), nil
}

// Marshal exports the workspace as indented JSON.
func Marshal(s *store.Store, n *notes.Store) ([]byte, error) {
	doc, err := Export(s, n)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import normalizes req and applies it. Nothing is changed when the document
// is malformed.
func Import(ctx context.Context, s *store.Store, n *notes.Store, req readers.Request, logger *zap.Logger) (*readers.Payload, error) {
	payload, err := readers.Format(req)
	if err != nil {
		return nil, err
	}
	if err := Apply(ctx, s, n, payload, req); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("document imported", zap.String("summary", payload.Describe()))
	}
	return payload, nil
}

// Apply stores a normalized payload. Controls and notes are only replaced
// when req asked to include them.
func Apply(ctx context.Context, s *store.Store, n *notes.Store, payload *readers.Payload, req readers.Request) error {
	if len(payload.Datasets) > 0 || payload.Selection != nil {
		if err := s.SetDatasets(ctx, payload.Datasets, payload.Selection); err != nil {
			return err
		}
	}
	if req.IncludeControls != nil && *req.IncludeControls {
		s.SetControls(payload.Controls)
	}
	if n != nil && req.IncludeNotes != nil && *req.IncludeNotes {
		if err := n.Load(payload.Notes); err != nil {
			return err
		}
	}
	return nil
}

func toValue(v any) (record.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return record.Missing, err
	}
	return record.Parse(data)
}
