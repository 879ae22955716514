// Package source queries the data.gov.in daily mandi price resource and
// normalizes its records into per-kg PriceRecords.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/internal/metrics"
	"github.com/navid-fn/mandi/internal/models"
)

// response is the subset of the source payload the client reads.
type response struct {
	Records []RawRecord `json:"records"`
	Total   int         `json:"total"`
}

// Defaults fills state and district when a filter leaves them empty.
type Defaults struct {
	State    string
	District string
}

type Client struct {
	httpConfig *HTTPConfig
	httpClient *http.Client
	defaults   Defaults
	logger     *logrus.Entry
}

func NewClient(cfg *HTTPConfig, defaults Defaults, logger *logrus.Logger) *Client {
	return &Client{
		httpConfig: cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		defaults:   defaults,
		logger:     logger.WithField("component", "source"),
	}
}

// Query builds the query parameters for one date. State and district always
// appear; commodity only when set.
func (c *Client) Query(date string, f models.QueryFilter) url.Values {
	state := f.State
	if state == "" {
		state = c.defaults.State
	}
	district := f.District
	if district == "" {
		district = c.defaults.District
	}

	params := url.Values{}
	params.Set("api-key", c.httpConfig.APIKey)
	params.Set("format", "json")
	params.Set("filters[Arrival_Date]", date)
	params.Set("filters[State]", state)
	params.Set("filters[District]", district)
	if f.Commodity != "" {
		params.Set("filters[Commodity]", f.Commodity)
	}
	params.Set("limit", strconv.Itoa(c.httpConfig.Limit))
	return params
}

// FetchForDate runs a single query for date (DD/MM/YYYY). A non-2xx answer
// returns *StatusError and a network or decode failure *TransportError; both
// come with an empty set. A payload without records is an empty set, not an
// error. Records that fail normalization are dropped and logged.
func (c *Client) FetchForDate(ctx context.Context, date string, f models.QueryFilter) (models.RecordSet, error) {
	start := time.Now()
	defer func() { metrics.SourceFetchDuration.Observe(time.Since(start).Seconds()) }()

	if err := c.httpConfig.RateLimiter.Wait(ctx); err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeTransportError).Inc()
		return models.RecordSet{}, &TransportError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	params := c.Query(date, f)
	c.logger.WithFields(logrus.Fields{
		"date":      date,
		"state":     params.Get("filters[State]"),
		"district":  params.Get("filters[District]"),
		"commodity": f.Commodity,
	}).Info("Fetching market data")

	body, status, err := c.doGET(ctx, c.httpConfig.BaseURL+"?"+params.Encode())
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeTransportError).Inc()
		c.logger.WithError(err).WithField("date", date).Error("Data fetch error")
		return models.RecordSet{}, &TransportError{Err: err}
	}
	if status < 200 || status >= 300 {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeStatusError).Inc()
		c.logger.WithFields(logrus.Fields{
			"date":   date,
			"status": status,
			"body":   truncate(body, 200),
		}).Error("API error")
		return models.RecordSet{}, &StatusError{StatusCode: status, Body: truncate(body, 200)}
	}

	var resp response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeTransportError).Inc()
		c.logger.WithError(err).WithField("date", date).Error("Failed to decode response")
		return models.RecordSet{}, &TransportError{Err: fmt.Errorf("failed to unmarshal: %w", err)}
	}

	if len(resp.Records) == 0 {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		c.logger.WithField("date", date).Warn("No records found")
		return models.RecordSet{}, nil
	}

	records := c.normalizeBatch(resp.Records)
	if len(records) == 0 {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
	} else {
		metrics.SourceFetchesTotal.WithLabelValues(metrics.OutcomeRecords).Inc()
	}
	c.logger.WithFields(logrus.Fields{"date": date, "count": len(records)}).Info("Successfully fetched records")
	return records, nil
}

func (c *Client) normalizeBatch(raw []RawRecord) models.RecordSet {
	records := make(models.RecordSet, 0, len(raw))
	for i, r := range raw {
		rec, err := Normalize(i, r)
		if err != nil {
			metrics.NormalizationDropsTotal.Inc()
			c.logger.WithError(err).WithField("index", i).Warn("Error transforming record")
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (c *Client) doGET(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
