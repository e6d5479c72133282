package writers

import (
	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DiffSchema is the flat, one-row-per-changed-field layout used by the
// columnar writers. Values are stored as JSON text; a missing value is null.
var DiffSchema = arrow.NewSchema([]arrow.Field{
	{Name: "key", Type: arrow.BinaryTypes.String},
	{Name: "field", Type: arrow.BinaryTypes.String},
	{Name: "display_name", Type: arrow.BinaryTypes.String},
	{Name: "start_value", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "end_value", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// BuildRecord flattens result into a DiffSchema batch. The caller releases
// the returned record.
func BuildRecord(mem memory.Allocator, result *core.DiffResult) arrow.Record {
	b := array.NewRecordBuilder(mem, DiffSchema)
	defer b.Release()

	key := b.Field(0).(*array.StringBuilder)
	field := b.Field(1).(*array.StringBuilder)
	display := b.Field(2).(*array.StringBuilder)
	start := b.Field(3).(*array.StringBuilder)
	end := b.Field(4).(*array.StringBuilder)

	for _, entry := range result.Differences {
		for _, fd := range entry.Fields {
			key.Append(entry.Key)
			field.Append(fd.Field.ID())
			display.Append(fd.Field.DisplayName)
			appendValue(start, fd.StartValue)
			appendValue(end, fd.EndValue)
		}
	}
	return b.NewRecord()
}

func appendValue(b *array.StringBuilder, v record.Value) {
	if v.IsMissing() {
		b.AppendNull()
		return
	}
	data, err := v.MarshalJSON()
	if err != nil {
		b.AppendNull()
		return
	}
	b.Append(string(data))
}
