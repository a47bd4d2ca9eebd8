// Package datasource retrieves historical series from a hosted time-series
// data API.
package datasource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/irfndi/foresight-go/internal/models"
)

// FetchRequest selects a series by external source id, inclusive date range
// and fetch-facing granularity.
type FetchRequest struct {
	SourceID string
	PeriodID string
	Start    time.Time
	End      time.Time
}

// Fetcher returns a series in ascending timestamp order or a *FetchError.
type Fetcher interface {
	FetchSeries(ctx context.Context, req FetchRequest) (models.Series, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req FetchRequest) (models.Series, error)

func (f FetcherFunc) FetchSeries(ctx context.Context, req FetchRequest) (models.Series, error) {
	return f(ctx, req)
}

// DatasetDataResponse is the body of a dataset data request.
type DatasetDataResponse struct {
	DatasetData DatasetData `json:"dataset_data"`
}

// DatasetData holds column names and row-major cells. The first column is
// the observation date.
type DatasetData struct {
	ColumnNames []string            `json:"column_names"`
	StartDate   string              `json:"start_date,omitempty"`
	EndDate     string              `json:"end_date,omitempty"`
	Frequency   string              `json:"frequency,omitempty"`
	Data        [][]json.RawMessage `json:"data"`
}

// APIErrorResponse is returned by the data API on 4xx and 5xx responses.
type APIErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"quandl_error"`
}
