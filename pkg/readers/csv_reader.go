package readers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// delimiters are tried in order; the one splitting the header into the most
// columns wins.
var delimiters = []rune{',', '|', '\t', ';'}

// CSVReader reads a delimited file with a header row, inferring column types.
type CSVReader struct {
	file   *os.File
	reader *csv.Reader
}

// NewCSVReader creates a new CSV reader.
func NewCSVReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for CSV reader")
	}

	file, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	chunkSize := config.BatchSize
	if chunkSize <= 0 {
		chunkSize = defaultBatchSize
	}

	buffered := bufio.NewReader(file)
	header, err := buffered.Peek(buffered.Size())
	if err != nil && len(header) == 0 {
		file.Close()
		return nil, core.MalformedInput("empty CSV file %s", config.Path)
	}

	reader := csv.NewInferringReader(
		buffered,
		csv.WithChunk(int(chunkSize)),
		csv.WithHeader(true),
		csv.WithComma(DetectDelimiter(string(header))),
		csv.WithNullReader(true, ""), // Empty string is treated as null
		csv.WithAllocator(memory.NewGoAllocator()),
	)

	return &CSVReader{file: file, reader: reader}, nil
}

// DetectDelimiter picks the delimiter of the first line of text.
func DetectDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, most := delimiters[0], -1
	for _, d := range delimiters {
		if n := strings.Count(line, string(d)); n > most {
			best, most = d, n
		}
	}
	return best
}

// Read converts every row into a record object and returns them as an array.
func (r *CSVReader) Read(ctx context.Context) (record.Value, error) {
	doc, err := collectRows(ctx, r.reader)
	if err != nil {
		return record.Missing, fmt.Errorf("failed to read CSV: %w", err)
	}
	return doc, nil
}

// Close closes the reader and releases resources.
func (r *CSVReader) Close() error {
	if r.reader != nil {
		r.reader.Release()
		r.reader = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
