package inspect

import (
	"context"
	"os"

	"github.com/pkg/errors"
	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
)

// ErrEmptyTable is returned when a file holds no columns.
var ErrEmptyTable = errors.New("empty table")

// ReadCSV reads a CSV table written by WriteCSV.
// - First row is header (column names)
// - Column types are inferred
func ReadCSV(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	df, err := imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		InferDataTypes: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "loading CSV %s", path)
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyTable
	}

	return df, nil
}

// ReadParquet reads a Parquet table written by WriteParquet.
func ReadParquet(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	// Open the parquet file using local file reader
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	df, err := imports.LoadFromParquet(ctx, fr)
	if err != nil {
		return nil, errors.Wrapf(err, "loading Parquet %s", path)
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyTable
	}

	return df, nil
}
