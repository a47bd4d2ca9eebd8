package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const userAgent = "Foresight-Go/1.0"

// Client fetches dataset data over HTTP.
type Client struct {
	HTTPClient  *http.Client
	baseURL     string
	apiKey      string
	valueColumn string
	logger      *logrus.Logger
}

// NewClient creates a data API client from configuration.
func NewClient(cfg *config.DataAPIConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := &Client{
		HTTPClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		valueColumn: cfg.ValueColumn,
		logger:      logger,
	}
	logger.WithField("base_url", client.baseURL).Debug("Data API client initialized")
	return client
}

// FetchSeries retrieves the series for req. Null cells are skipped, rows are
// returned in ascending order and duplicate dates are rejected. Rows dated
// outside [req.Start, req.End] are dropped; collapsed datasets report
// period-end dates that can fall past req.End.
func (c *Client) FetchSeries(ctx context.Context, req FetchRequest) (models.Series, error) {
	if req.SourceID == "" {
		return models.Series{}, fetchError(req.SourceID, "empty source id", nil)
	}
	if req.End.Before(req.Start) {
		return models.Series{}, fetchError(req.SourceID, "range end precedes start", nil)
	}

	start := time.Now()
	var response DatasetDataResponse
	if err := c.makeRequest(ctx, http.MethodGet, c.datasetPath(req.SourceID), c.datasetQuery(req), &response); err != nil {
		c.logger.WithFields(logrus.Fields{
			"source_id": req.SourceID,
			"period_id": req.PeriodID,
			"duration":  time.Since(start),
		}).WithError(err).Warn("Data API request failed")
		return models.Series{}, err.withSource(req.SourceID)
	}

	points, err := c.decode(response.DatasetData)
	if err != nil {
		return models.Series{}, fetchError(req.SourceID, "invalid dataset", err)
	}

	series, dropped := models.Series{SourceID: req.SourceID, PeriodID: req.PeriodID, Points: points}.Clip(req.Start, req.End)
	if series.Len() == 0 {
		return models.Series{}, fetchError(req.SourceID, "no data for selection", nil)
	}

	c.logger.WithFields(logrus.Fields{
		"source_id": req.SourceID,
		"period_id": req.PeriodID,
		"points":    series.Len(),
		"dropped":   dropped,
		"duration":  time.Since(start),
	}).Debug("Fetched series")

	return series, nil
}

// HealthCheck reports whether the data API host answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("data API unreachable: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("data API unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) datasetPath(sourceID string) string {
	segments := strings.Split(sourceID, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/api/v3/datasets/" + strings.Join(segments, "/") + "/data.json"
}

func (c *Client) datasetQuery(req FetchRequest) url.Values {
	q := url.Values{}
	q.Set("start_date", req.Start.Format(models.DateLayout))
	q.Set("end_date", req.End.Format(models.DateLayout))
	if req.PeriodID != "" {
		q.Set("collapse", req.PeriodID)
	}
	q.Set("order", "asc")
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	return q
}

// requestError carries a failure reason until the source id is known.
type requestError struct {
	reason    string
	err       error
	temporary bool
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.reason + ": " + e.err.Error()
	}
	return e.reason
}

func (e *requestError) withSource(sourceID string) *FetchError {
	fe := fetchError(sourceID, e.reason, e.err)
	fe.Temporary = e.temporary
	return fe
}

func (c *Client) makeRequest(ctx context.Context, method, path string, query url.Values, result interface{}) *requestError {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return &requestError{reason: "failed to create request", err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &requestError{reason: "failed to make request", err: err, temporary: ctx.Err() == nil}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &requestError{reason: "failed to read response body", err: err}
	}

	if resp.StatusCode >= 400 {
		temporary := resp.StatusCode >= 500
		var errorResp APIErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			return &requestError{reason: fmt.Sprintf("data API error (%d) %s: %s",
				resp.StatusCode, errorResp.Error.Code, errorResp.Error.Message), temporary: temporary}
		}
		return &requestError{reason: fmt.Sprintf("data API error (%d): %s",
			resp.StatusCode, strings.TrimSpace(string(respBody))), temporary: temporary}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &requestError{reason: "failed to unmarshal response", err: err}
		}
	}

	return nil
}

func (c *Client) decode(data DatasetData) ([]models.Point, error) {
	col, err := c.valueIndex(data)
	if err != nil {
		return nil, err
	}

	points := make([]models.Point, 0, len(data.Data))
	for i, row := range data.Data {
		if len(row) <= col {
			return nil, fmt.Errorf("row %d has %d cells, want at least %d", i, len(row), col+1)
		}
		t, err := parseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		value, ok, err := parseValue(row[col])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok {
			continue
		}
		points = append(points, models.Point{Time: t, Value: value})
	}

	slices.SortFunc(points, func(a, b models.Point) int {
		return a.Time.Compare(b.Time)
	})
	for i := 1; i < len(points); i++ {
		if points[i].Time.Equal(points[i-1].Time) {
			return nil, fmt.Errorf("duplicate observation for %s", points[i].Time.Format(models.DateLayout))
		}
	}
	return points, nil
}

// valueIndex picks the configured column, or the first column after the date
// that holds a number.
func (c *Client) valueIndex(data DatasetData) (int, error) {
	if c.valueColumn != "" {
		for i, name := range data.ColumnNames {
			if i > 0 && strings.EqualFold(name, c.valueColumn) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("column %q not in %v", c.valueColumn, data.ColumnNames)
	}

	width := len(data.ColumnNames)
	if width == 0 && len(data.Data) > 0 {
		width = len(data.Data[0])
	}
	for col := 1; col < width; col++ {
		for _, row := range data.Data {
			if col >= len(row) {
				continue
			}
			if _, ok, err := parseValue(row[col]); err == nil && ok {
				return col, nil
			}
		}
	}
	if width < 2 {
		return 0, errors.New("dataset has no value column")
	}
	return 1, nil
}

func parseDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("invalid date cell %s", string(raw))
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// parseValue decodes a numeric cell exactly. ok is false for null cells.
func parseValue(raw json.RawMessage) (float64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, fmt.Errorf("invalid value cell %s", string(raw))
		}
		if text == "" {
			return 0, false, nil
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value %q: %w", text, err)
	}
	f, _ := d.Float64()
	return f, true, nil
}
