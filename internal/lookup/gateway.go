// Package lookup invokes the external number lookup service and classifies
// the outcome of a single call.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/metrics"
	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// Kind classifies a lookup outcome.
type Kind int

const (
	KindFound Kind = iota + 1
	KindEmpty
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return metrics.OutcomeFound
	case KindEmpty:
		return metrics.OutcomeEmpty
	case KindUnavailable:
		return metrics.OutcomeUnavailable
	default:
		return "unknown"
	}
}

// Outcome is the result of one Search. Results is set only for KindFound,
// Err only for KindUnavailable.
type Outcome struct {
	Kind    Kind
	Results []model.Result
	Err     error
}

func Found(results []model.Result) Outcome { return Outcome{Kind: KindFound, Results: results} }

func Empty() Outcome { return Outcome{Kind: KindEmpty} }

func Unavailable(err error) Outcome {
	return Outcome{Kind: KindUnavailable, Err: fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)}
}

// Gateway searches the lookup service for a 10-digit number. Input shape is
// the caller's responsibility. A Gateway never retries.
type Gateway interface {
	Search(ctx context.Context, number string) Outcome
}

// HTTPGateway calls GET <url>?key=<key>&num=<number>.
type HTTPGateway struct {
	client  *resty.Client
	url     string
	key     string
	timeout time.Duration
	log     zerolog.Logger
}

// searchResponse keeps each result raw so one malformed element does not
// discard the rest.
type searchResponse struct {
	Success bool              `json:"success"`
	Result  []json.RawMessage `json:"result"`
}

func NewHTTPGateway(url, key string, timeout time.Duration, log zerolog.Logger) *HTTPGateway {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &HTTPGateway{
		client:  c,
		url:     url,
		key:     key,
		timeout: timeout,
		log:     log.With().Str("component", "lookup").Logger(),
	}
}

// Search performs exactly one call bounded by the configured timeout.
func (g *HTTPGateway) Search(ctx context.Context, number string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	out := g.search(ctx, number)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(out.Kind.String()).Inc()

	ev := g.log.Info()
	if out.Kind == KindUnavailable {
		ev = g.log.Warn().Err(out.Err)
	}
	ev.Str("outcome", out.Kind.String()).Int("results", len(out.Results)).Dur("elapsed", time.Since(start)).Msg("lookup finished")
	return out
}

func (g *HTTPGateway) search(ctx context.Context, number string) Outcome {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"key": g.key, "num": number}).
		Get(g.url)
	if err != nil {
		return Unavailable(fmt.Errorf("lookup request: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return Unavailable(fmt.Errorf("lookup status %d", resp.StatusCode()))
	}

	var sr searchResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return Unavailable(fmt.Errorf("decode response: %w", err))
	}
	if !sr.Success || len(sr.Result) == 0 {
		return Empty()
	}

	results := make([]model.Result, 0, len(sr.Result))
	for i, raw := range sr.Result {
		var r model.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			g.log.Warn().Err(err).Int("index", i).Msg("skipping undecodable result")
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return Empty()
	}
	return Found(results)
}
