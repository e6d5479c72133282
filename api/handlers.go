package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TFMV/vantage/metrics"
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/document"
	"github.com/TFMV/vantage/pkg/fieldset"
	"github.com/TFMV/vantage/pkg/readers"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/report"
	"github.com/TFMV/vantage/version"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	s.app.Get("/version", s.getVersion)

	s.app.Post("/datasets", s.loadDatasets)
	s.app.Get("/datasets", s.listDatasets)
	s.app.Get("/datasets/:owner", s.getDataset)
	s.app.Delete("/datasets/:owner", s.deleteDataset)
	s.app.Get("/configuration", s.getConfiguration)
	s.app.Get("/values", s.getValues)

	s.app.Get("/fields/available", s.availableFields)
	s.app.Post("/fields/move", s.moveField)
	s.app.Get("/fields/:target", s.getFields)
	s.app.Put("/fields/:target", s.putFields)
	s.app.Delete("/fields/:id", s.removeField)

	s.app.Get("/comparison", s.getComparison)
	s.app.Put("/comparison", s.selectComparison)
	s.app.Delete("/comparison", s.clearComparison)
	s.app.Get("/diff", s.getDiff)
	s.app.Get("/membership", s.getMembership)
	s.app.Get("/union", s.getUnion)
	s.app.Get("/keys", s.getKeys)
	s.app.Get("/summary", s.getSummary)
	s.app.Get("/report", s.getReport)
	s.app.Get("/export", s.export)

	s.app.Get("/notes", s.getNotes)
	s.app.Post("/notes", s.addNote)
	s.app.Delete("/notes/:id", s.removeNote)
}

func (s *Server) getVersion(c *fiber.Ctx) error {
	info := version.Get()
	return c.JSON(fiber.Map{
		"service": info.Service,
		"version": info.Version,
		"commit":  info.Commit,
		"build":   info.Build,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// -----------------------------
// Datasets
// -----------------------------

// datasetView is the list entry of a dataset, without records.
type datasetView struct {
	Owner          core.Owner `json:"owner"`
	Name           string     `json:"name"`
	ShortName      string     `json:"shortName"`
	Source         *string    `json:"source"`
	Records        int        `json:"records"`
	Fields         int        `json:"fields"`
	KeyCount       int        `json:"keyCount"`
	UniqueKeyCount int        `json:"uniqueKeyCount"`
	IsFetching     bool       `json:"isFetching"`
	LastUpdated    *time.Time `json:"lastUpdated"`
}

func viewOf(ds *core.Dataset) datasetView {
	return datasetView{
		Owner:          ds.Owner,
		Name:           ds.Name,
		ShortName:      ds.ShortName,
		Source:         ds.Source,
		Records:        len(ds.Records),
		Fields:         len(ds.Configuration.Fields),
		KeyCount:       ds.KeyCount,
		UniqueKeyCount: ds.UniqueKeyCount,
		IsFetching:     ds.IsFetching,
		LastUpdated:    ds.LastUpdated,
	}
}

// loadDatasets accepts any document shape the loader understands. Query
// parameters: owner, name, shortName, source, includeData, includeControls,
// includeNotes.
func (s *Server) loadDatasets(c *fiber.Ctx) error {
	content, err := record.Parse(c.Body())
	if err != nil {
		return core.MalformedInput("request body: %v", err)
	}

	req := readers.Request{
		Name:      c.Query("name"),
		ShortName: c.Query("shortName"),
		Content:   content,
	}
	if owner := c.Query("owner"); owner != "" {
		req.Owner = readers.ParseOwner(owner)
	}
	if source := c.Query("source"); source != "" {
		req.Source = &source
	}
	for key, dst := range map[string]**bool{
		"includeData":     &req.IncludeData,
		"includeControls": &req.IncludeControls,
		"includeNotes":    &req.IncludeNotes,
	} {
		if *dst, err = optionalBool(c, key); err != nil {
			return err
		}
	}

	payload, err := document.Import(c.UserContext(), s.store, s.notes, req, s.logger)
	if err != nil {
		return err
	}
	owners := make([]core.Owner, len(payload.Datasets))
	for i, in := range payload.Datasets {
		owners[i] = in.Owner
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"owners":  owners,
		"summary": payload.Describe(),
	})
}

func (s *Server) listDatasets(c *fiber.Ctx) error {
	datasets := s.store.Datasets()
	views := make([]datasetView, len(datasets))
	for i, ds := range datasets {
		views[i] = viewOf(ds)
	}
	return c.JSON(views)
}

func (s *Server) getDataset(c *fiber.Ctx) error {
	ds, err := s.dataset(c.Params("owner"))
	if err != nil {
		return err
	}
	return c.JSON(ds)
}

func (s *Server) deleteDataset(c *fiber.Ctx) error {
	owner := readers.ParseOwner(c.Params("owner"))
	if !s.store.RemoveDataset(owner) {
		return fmt.Errorf("%w: %s", core.ErrUnknownDataset, c.Params("owner"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// getConfiguration returns the merged configuration, or one dataset's when
// ?owner= is given.
func (s *Server) getConfiguration(c *fiber.Ctx) error {
	if key := c.Query("owner"); key != "" {
		ds, err := s.dataset(key)
		if err != nil {
			return err
		}
		return c.JSON(ds.Configuration)
	}
	return c.JSON(s.store.MergedConfiguration())
}

func (s *Server) getValues(c *fiber.Ctx) error {
	if key := c.Query("owner"); key != "" {
		ds, err := s.dataset(key)
		if err != nil {
			return err
		}
		return c.JSON(ds.Values)
	}
	return c.JSON(s.store.MergedValues())
}

// -----------------------------
// Field sets
// -----------------------------

type fieldsRequest struct {
	Fields []string `json:"fields"`
}

type moveRequest struct {
	Field  string `json:"field"`
	Target string `json:"target"`
	Index  int    `json:"index"`
}

func (s *Server) availableFields(c *fiber.Ctx) error {
	return c.JSON(s.store.AvailableFields())
}

func (s *Server) getFields(c *fiber.Ctx) error {
	target, err := parseTarget(c.Params("target"))
	if err != nil {
		return err
	}
	if target == fieldset.Key {
		return c.JSON(s.store.KeyFields())
	}
	return c.JSON(s.store.IgnoredFields())
}

// putFields replaces a field set with the given field ids.
func (s *Server) putFields(c *fiber.Ctx) error {
	target, err := parseTarget(c.Params("target"))
	if err != nil {
		return err
	}
	var body fieldsRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	fields := fieldset.Resolve(s.store.MergedConfiguration(), body.Fields)
	if target == fieldset.Key {
		s.store.SetKeyFields(fields)
	} else {
		s.store.SetIgnoredFields(fields)
	}
	return c.JSON(s.store.Selection())
}

func (s *Server) moveField(c *fiber.Ctx) error {
	var body moveRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	target, err := parseTarget(body.Target)
	if err != nil {
		return err
	}
	changes, err := s.store.MoveField(body.Field, target, body.Index)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"changes":   changes,
		"selection": s.store.Selection(),
	})
}

func (s *Server) removeField(c *fiber.Ctx) error {
	changes := s.store.RemoveField(c.Params("id"))
	return c.JSON(fiber.Map{
		"changes":   changes,
		"selection": s.store.Selection(),
	})
}

// -----------------------------
// Comparison
// -----------------------------

type comparisonRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) getComparison(c *fiber.Ctx) error {
	cmp, ok := s.store.SelectedComparison()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no comparison selected")
	}
	return c.JSON(cmp)
}

func (s *Server) selectComparison(c *fiber.Ctx) error {
	var body comparisonRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if body.Start == "" || body.End == "" {
		return fiber.NewError(fiber.StatusBadRequest, "start and end are required")
	}
	result, err := s.store.SelectComparison(c.UserContext(), readers.ParseOwner(body.Start), readers.ParseOwner(body.End))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) clearComparison(c *fiber.Ctx) error {
	s.store.ClearComparison()
	return c.SendStatus(fiber.StatusNoContent)
}

// getDiff returns the published diff of the pair, computing it when absent.
func (s *Server) getDiff(c *fiber.Ctx) error {
	start, end, err := s.pair(c)
	if err != nil {
		return err
	}
	if result, ok := s.store.Diff(start, end); ok {
		return c.JSON(result)
	}
	result, err := s.store.Compare(c.UserContext(), start, end)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) getMembership(c *fiber.Ctx) error {
	start, end, err := s.pair(c)
	if err != nil {
		return err
	}
	return c.JSON(s.store.Membership(start, end))
}

func (s *Server) getUnion(c *fiber.Ctx) error {
	start, end, err := s.pair(c)
	if err != nil {
		return err
	}
	return c.JSON(s.store.Union(start, end))
}

func (s *Server) getKeys(c *fiber.Ctx) error {
	return c.JSON(s.store.KeyInfo())
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	summary, err := s.summarize(c)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// getReport renders the summary with ?format=json (default) or html.
func (s *Server) getReport(c *fiber.Ctx) error {
	gen, err := report.NewGenerator(c.Query("format", "json"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	summary, err := s.summarize(c)
	if err != nil {
		return err
	}
	body, err := gen.GenerateComparisonReport(summary)
	if err != nil {
		return err
	}
	if _, ok := gen.(*report.HTMLReportGenerator); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return c.Send(body)
}

func (s *Server) summarize(c *fiber.Ctx) (metrics.ComparisonSummary, error) {
	start, end, err := s.pair(c)
	if err != nil {
		return metrics.ComparisonSummary{}, err
	}
	began := time.Now()
	result, err := s.store.Compare(c.UserContext(), start, end)
	if err != nil {
		return metrics.ComparisonSummary{}, err
	}
	startDS, _ := s.store.Dataset(start)
	endDS, _ := s.store.Dataset(end)
	sel := s.store.Selection()
	return metrics.Summarize(metrics.Input{
		Start:         startDS,
		End:           endDS,
		Result:        result,
		Membership:    s.store.Membership(start, end),
		KeyFields:     sel.Key,
		IgnoredFields: sel.Ignored,
		StartTime:     began,
		EndTime:       time.Now(),
	}), nil
}

func (s *Server) export(c *fiber.Ctx) error {
	body, err := document.Marshal(s.store, s.notes)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// -----------------------------
// Notes
// -----------------------------

func (s *Server) getNotes(c *fiber.Ctx) error {
	return c.JSON(s.notes.Snapshot())
}

func (s *Server) addNote(c *fiber.Ctx) error {
	note, err := record.Parse(c.Body())
	if err != nil {
		return core.MalformedInput("note: %v", err)
	}
	if err := s.notes.Add(note); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (s *Server) removeNote(c *fiber.Ctx) error {
	if err := s.notes.Remove(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// -----------------------------
// Helpers
// -----------------------------

func (s *Server) dataset(key string) (*core.Dataset, error) {
	ds, ok := s.store.Dataset(readers.ParseOwner(key))
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownDataset, key)
	}
	return ds, nil
}

// pair reads ?start= and ?end=, falling back to the selected comparison.
// An owner that is not loaded is a missing counterpart, not an error.
func (s *Server) pair(c *fiber.Ctx) (core.Owner, core.Owner, error) {
	startKey, endKey := c.Query("start"), c.Query("end")
	if startKey == "" && endKey == "" {
		cmp, ok := s.store.SelectedComparison()
		if !ok {
			return core.Owner{}, core.Owner{}, fiber.NewError(fiber.StatusBadRequest, "no comparison selected; pass start and end")
		}
		return cmp.Start, cmp.End, nil
	}
	if startKey == "" || endKey == "" {
		return core.Owner{}, core.Owner{}, fiber.NewError(fiber.StatusBadRequest, "start and end are required")
	}
	return readers.ParseOwner(startKey), readers.ParseOwner(endKey), nil
}

func parseTarget(s string) (fieldset.Target, error) {
	target, err := fieldset.ParseTarget(s)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return target, nil
}

func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s: %v", key, err))
	}
	return &v, nil
}
