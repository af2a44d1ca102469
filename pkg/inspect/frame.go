// Package inspect turns machine snapshots into DataFrames and moves them to
// and from CSV and Parquet files.
//
// Every table has one row per cell with the columns:
//
//	<index>  int64   address, register number or stack depth (0 = bottom)
//	tag      int64   wire type tag, 255 for None
//	kind     string  variant name (U8, I16, F64, None, ...)
//	bits     int64   raw little-endian bit pattern, reinterpreted as int64
//	text     string  canonical text form, e.g. U8(5)
//
// tag and bits are enough to rebuild the exact value; kind and text are for
// people reading the file.
package inspect

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/bvm/pkg/vm"
)

// Index column names
const (
	AddressColumn  = "address"
	RegisterColumn = "register"
	DepthColumn    = "depth"
)

// Value column names
const (
	TagColumn  = "tag"
	KindColumn = "kind"
	BitsColumn = "bits"
	TextColumn = "text"
)

// Error definitions
var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadCell       = errors.New("invalid cell")
)

// HeapFrame returns the data segment of s, one row per address.
func HeapFrame(s *vm.Snapshot) *dataframe.DataFrame {
	return cellFrame(AddressColumn, s.Heap)
}

// RegisterFrame returns the registers of s, one row per register.
func RegisterFrame(s *vm.Snapshot) *dataframe.DataFrame {
	return cellFrame(RegisterColumn, s.Registers)
}

// StackFrame returns the operand stack of s, bottom first.
func StackFrame(s *vm.Snapshot) *dataframe.DataFrame {
	return cellFrame(DepthColumn, s.Stack)
}

func cellFrame(index string, cells []vm.Immediate) *dataframe.DataFrame {
	n := len(cells)
	idx := make([]interface{}, n)
	tags := make([]interface{}, n)
	kinds := make([]interface{}, n)
	bits := make([]interface{}, n)
	texts := make([]interface{}, n)
	for i, v := range cells {
		idx[i] = int64(i)
		tags[i] = int64(v.Kind())
		kinds[i] = v.Kind().String()
		bits[i] = int64(v.Bits())
		texts[i] = v.String()
	}
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64(index, nil, idx...),
		dataframe.NewSeriesInt64(TagColumn, nil, tags...),
		dataframe.NewSeriesString(KindColumn, nil, kinds...),
		dataframe.NewSeriesInt64(BitsColumn, nil, bits...),
		dataframe.NewSeriesString(TextColumn, nil, texts...),
	)
}

// Cells rebuilds the values of a cell table, in row order. Only the tag and
// bits columns are read.
func Cells(df *dataframe.DataFrame) ([]vm.Immediate, error) {
	tagCol, err := column(df, TagColumn)
	if err != nil {
		return nil, err
	}
	bitsCol, err := column(df, BitsColumn)
	if err != nil {
		return nil, err
	}

	n := df.NRows()
	out := make([]vm.Immediate, n)
	for row := 0; row < n; row++ {
		tag, err := int64At(tagCol, row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d tag", row)
		}
		if tag < 0 || tag > 0xFF {
			return nil, errors.Wrapf(ErrBadCell, "row %d: tag %d", row, tag)
		}
		bits, err := int64At(bitsCol, row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d bits", row)
		}
		out[row] = vm.FromBits(vm.Kind(tag), uint64(bits))
	}
	return out, nil
}

// column finds a series by name. Parquet round trips may change the case of
// the first letter, so an exact match is tried first, then a folded one.
func column(df *dataframe.DataFrame, name string) (dataframe.Series, error) {
	if i, err := df.NameToColumn(name); err == nil {
		return df.Series[i], nil
	}
	for _, s := range df.Series {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, errors.Wrap(ErrMissingColumn, name)
}

// int64At reads an integer cell. Imported files may type integer columns as
// int64 or float64, or leave them as strings.
func int64At(s dataframe.Series, row int) (int64, error) {
	switch v := s.Value(row).(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err != nil {
			return 0, errors.Wrapf(ErrBadCell, "%q", v)
		}
		return n, nil
	case nil:
		return 0, errors.Wrap(ErrBadCell, "empty")
	default:
		return 0, errors.Wrapf(ErrBadCell, "unexpected %T", v)
	}
}
