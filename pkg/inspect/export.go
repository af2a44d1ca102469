package inspect

import (
	"context"
	"os"

	"github.com/pkg/errors"
	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// WriteCSV writes df to path as CSV with a header row.
func WriteCSV(ctx context.Context, path string, df *dataframe.DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exports.ExportToCSV(ctx, f, df); err != nil {
		f.Close()
		return errors.Wrapf(err, "exporting CSV %s", path)
	}
	return f.Close()
}

// WriteParquet writes df to path as Parquet.
func WriteParquet(ctx context.Context, path string, df *dataframe.DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exports.ExportToParquet(ctx, f, df); err != nil {
		f.Close()
		return errors.Wrapf(err, "exporting Parquet %s", path)
	}
	return f.Close()
}
