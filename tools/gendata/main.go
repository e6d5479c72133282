// Command gendata writes a pair of related datasets for trying out and
// benchmarking comparisons: an end dataset derived from the start one with a
// controlled share of changed, removed and added records.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/TFMV/vantage/logger"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/TFMV/vantage/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	firstNames   = "John,Jane,Bob,Mary,Alice,David,Emma,Michael,Olivia,James"
	lastNames    = "Smith,Johnson,Williams,Jones,Brown,Davis,Miller,Wilson,Moore,Taylor"
	domains      = "gmail.com,example.com,company.com,school.edu,local.net"
	statusValues = "active,inactive,pending,suspended"
	stateValues  = "AL,AK,AZ,CA,CO,NY,TX,WA"
)

// Config for the data generator
type Config struct {
	rows        int
	outputDir   string
	startFile   string
	endFile     string
	format      string
	randomSeed  int64
	diffRate    float64
	churnRate   float64
	missingRate float64
	dupRate     float64
}

// Stats counts what the generator did to the end dataset.
type Stats struct {
	Changed    int
	Removed    int
	Added      int
	Duplicates int
}

func main() {
	config := parseFlags()
	log, err := logger.New(logger.Config{Level: "info"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(config.outputDir, 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}

	start, end, stats := generate(config, rand.New(rand.NewSource(config.randomSeed)))

	for _, out := range []struct {
		name    string
		records []record.Value
	}{{config.startFile, start}, {config.endFile, end}} {
		path := filepath.Join(config.outputDir, out.name)
		if err := write(path, config.format, out.records); err != nil {
			log.Fatal("failed to write dataset", zap.String("path", path), zap.Error(err))
		}
		log.Info("dataset written", zap.String("path", path), zap.Int("records", len(out.records)))
	}
	log.Info("generated datasets",
		zap.Int("changed", stats.Changed),
		zap.Int("removed", stats.Removed),
		zap.Int("added", stats.Added),
		zap.Int("duplicates", stats.Duplicates),
	)
}

// parseFlags parses command-line arguments and returns a Config
func parseFlags() Config {
	c := Config{}
	flag.IntVar(&c.rows, "rows", 10000, "Number of records in the start dataset")
	flag.StringVar(&c.outputDir, "outdir", "test_data", "Output directory for generated files")
	flag.StringVar(&c.format, "format", "json", "Output format (json, parquet)")
	flag.StringVar(&c.startFile, "start", "", "Filename of the start dataset")
	flag.StringVar(&c.endFile, "end", "", "Filename of the end dataset")
	flag.Int64Var(&c.randomSeed, "seed", 42, "Random seed for data generation")
	flag.Float64Var(&c.diffRate, "diffs", 0.1, "Share of shared records whose status changes (0.0-1.0)")
	flag.Float64Var(&c.churnRate, "churn", 0.05, "Share of records removed from and added to the end dataset (0.0-1.0)")
	flag.Float64Var(&c.missingRate, "missing", 0.05, "Share of records without an email (0.0-1.0)")
	flag.Float64Var(&c.dupRate, "dups", 0, "Share of start records repeated with the same id (0.0-1.0)")
	flag.Parse()

	if c.startFile == "" {
		c.startFile = "start." + c.format
	}
	if c.endFile == "" {
		c.endFile = "end." + c.format
	}
	return c
}

// generate builds the start dataset and derives the end dataset from it.
// Records are keyed by "id".
func generate(config Config, rnd *rand.Rand) ([]record.Value, []record.Value, Stats) {
	var stats Stats
	start := make([]record.Value, 0, config.rows)
	for i := 0; i < config.rows; i++ {
		start = append(start, newRecord(rnd, config))
	}
	unique := len(start)
	for i := 0; i < unique; i++ {
		if rnd.Float64() < config.dupRate {
			start = append(start, start[i])
			stats.Duplicates++
		}
	}

	end := make([]record.Value, 0, unique)
	for _, rec := range start[:unique] {
		if rnd.Float64() < config.churnRate {
			stats.Removed++
			continue
		}
		if rnd.Float64() < config.diffRate {
			status, _ := rec.Field("status")
			rec = rec.With("status", record.StringValue(nextItem(statusValues, status.Str())))
			stats.Changed++
		}
		end = append(end, rec)
	}
	added := int(float64(config.rows) * config.churnRate)
	for i := 0; i < added; i++ {
		end = append(end, newRecord(rnd, config))
		stats.Added++
	}
	return start, end, stats
}

func newRecord(rnd *rand.Rand, config Config) record.Value {
	id, err := uuid.NewRandomFromReader(rnd)
	if err != nil {
		id = uuid.New()
	}
	first, last := randomItem(firstNames, rnd), randomItem(lastNames, rnd)
	rec := record.NewObject().
		With("id", record.StringValue(id.String())).
		With("name", record.StringValue(first+" "+last))
	if rnd.Float64() >= config.missingRate {
		email := strings.ToLower(first+"."+last) + "@" + randomItem(domains, rnd)
		rec = rec.With("email", record.StringValue(email))
	}
	return rec.
		With("status", record.StringValue(randomItem(statusValues, rnd))).
		With("score", record.NumberValue(float64(rnd.Intn(1000))/10)).
		With("address", record.NewObject().
			With("state", record.StringValue(randomItem(stateValues, rnd))).
			With("zip", record.StringValue(fmt.Sprintf("%05d", rnd.Intn(100000)))))
}

func write(path, format string, records []record.Value) error {
	switch format {
	case "json":
		data, err := json.Marshal(record.ArrayValue(records...))
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case "parquet":
		return writeParquet(path, records)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// writeParquet flattens records into one nullable utf8 column per leaf
// field, named by field id.
func writeParquet(path string, records []record.Value) error {
	cfg := schema.Discover(records, nil)
	fields := make([]arrow.Field, len(cfg.Fields))
	for i, f := range cfg.Fields {
		fields[i] = arrow.Field{Name: f.ID(), Type: arrow.BinaryTypes.String, Nullable: true}
	}
	sc := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, sc)
	defer b.Release()
	for _, rec := range records {
		for i, f := range cfg.Fields {
			col := b.Field(i).(*array.StringBuilder)
			v, ok := rec.Get(f.Path)
			if !ok {
				col.AppendNull()
				continue
			}
			col.Append(v.String())
		}
	}
	batch := b.NewRecord()
	defer batch.Release()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy), parquet.WithAllocator(mem))
	writer, err := pqarrow.NewFileWriter(sc, file, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(batch); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	return writer.Close()
}

// randomItem returns a random item from a comma separated list
func randomItem(list string, rnd *rand.Rand) string {
	items := strings.Split(list, ",")
	return items[rnd.Intn(len(items))]
}

// nextItem returns the item following current in a comma separated list.
func nextItem(list, current string) string {
	items := strings.Split(list, ",")
	for i, item := range items {
		if item == current {
			return items[(i+1)%len(items)]
		}
	}
	return items[0]
}
