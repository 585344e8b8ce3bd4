package journal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/ipc"
	"github.com/apache/arrow/go/v13/arrow/memory"

	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/optimizer"
	"github.com/sar2901/scikit-optimize/pkg/space"
)

// ExportArrow writes a finished run's trace to path as an Arrow IPC
// file: iteration, phase and value columns followed by one typed column
// per dimension. Real dimensions export as float64, integers as int64
// and categoricals as strings, so the file loads into any Arrow-aware
// tool with the native types intact.
func ExportArrow(r *optimizer.Result, path string) error {
	if r == nil || r.Space == nil {
		return errors.New(errors.InvalidConfiguration, "result carries no search space")
	}

	dims := r.Space.Dimensions()
	fields := []arrow.Field{
		{Name: "iteration", Type: arrow.PrimitiveTypes.Int64},
		{Name: "phase", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}
	for _, d := range dims {
		switch dim := d.(type) {
		case *space.Real:
			fields = append(fields, arrow.Field{Name: dim.Name, Type: arrow.PrimitiveTypes.Float64})
		case *space.Integer:
			fields = append(fields, arrow.Field{Name: dim.Name, Type: arrow.PrimitiveTypes.Int64})
		case *space.Categorical:
			fields = append(fields, arrow.Field{Name: dim.Name, Type: arrow.BinaryTypes.String})
		default:
			return errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("dimension %T cannot be exported", d))
		}
	}

	md := arrow.NewMetadata(
		[]string{"run_id", "seed"},
		[]string{r.Metadata.RunID, strconv.FormatInt(r.Metadata.Seed, 10)},
	)
	schema := arrow.NewSchema(fields, &md)

	mem := memory.DefaultAllocator
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for i, p := range r.Xs {
		builder.Field(0).(*array.Int64Builder).Append(int64(i))
		builder.Field(1).(*array.StringBuilder).Append(phaseLabel(i, r.Metadata))
		builder.Field(2).(*array.Float64Builder).Append(r.Ys[i])

		for d := range dims {
			col := builder.Field(3 + d)
			switch v := p[d].(type) {
			case float64:
				fb, ok := col.(*array.Float64Builder)
				if !ok {
					return exportTypeError(i, d, p[d])
				}
				fb.Append(v)
			case int:
				ib, ok := col.(*array.Int64Builder)
				if !ok {
					return exportTypeError(i, d, p[d])
				}
				ib.Append(int64(v))
			case string:
				sb, ok := col.(*array.StringBuilder)
				if !ok {
					return exportTypeError(i, d, p[d])
				}
				sb.Append(v)
			default:
				return exportTypeError(i, d, p[d])
			}
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create export file")
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to open Arrow writer")
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return errors.Wrap(err, errors.Unknown, "failed to write trace record")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to finalize Arrow file")
	}
	return nil
}

func exportTypeError(iteration, dim int, v interface{}) error {
	return errors.WithFields(
		errors.New(errors.InvalidPoint, "trace value does not match its dimension type"),
		errors.Fields{"iteration": iteration, "dimension": dim, "value_type": fmt.Sprintf("%T", v)},
	)
}
