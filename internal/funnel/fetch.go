package funnel

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/resilience"
	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// pageSize is the fixed search page size the CRM allows per request.
const pageSize = 100

// Outcome describes how a fetch terminated. Degraded and rate-limited
// fetches yield empty tables with a zero record count; callers treat them
// as "no data", never as an error to propagate.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeDegraded    Outcome = "degraded"
	OutcomeRateLimited Outcome = "rate_limited"
)

// FetchStats summarizes one paginated fetch.
type FetchStats struct {
	RunID    string  `json:"run_id"`
	Requests int     `json:"requests"`
	Records  int     `json:"records"`
	Outcome  Outcome `json:"outcome"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPageDelay sets the pacing sleep between successful pages.
func WithPageDelay(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.pageDelay = d
	}
}

// WithRetryConfig overrides the rate-limit retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) ServiceOption {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithSleep overrides the pacing sleep, for tests.
func WithSleep(fn func(d time.Duration)) ServiceOption {
	return func(s *Service) {
		s.sleep = fn
	}
}

// Service runs the acquisition pipeline: paginated contact and deal
// searches, stage catalog retrieval, and record normalization. It is
// synchronous; each fetch runs to completion on the calling goroutine.
type Service struct {
	hs        hubspot.Client
	loc       *time.Location
	pageDelay time.Duration
	retry     resilience.RetryConfig
	sleep     func(d time.Duration)
}

// NewService creates a fetch service over the given CRM client, with dates
// interpreted in loc.
func NewService(hs hubspot.Client, loc *time.Location, opts ...ServiceOption) *Service {
	s := &Service{
		hs:        hs,
		loc:       loc,
		pageDelay: 200 * time.Millisecond,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	return s
}

// Location returns the zone dates are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// FetchStageCatalog retrieves the deal pipeline catalog. Failure is
// non-fatal: it degrades to an empty catalog so the session continues with
// no stages detected.
func (s *Service) FetchStageCatalog(ctx context.Context) *Catalog {
	resp, err := s.hs.ListDealPipelines(ctx)
	if err != nil {
		zap.L().Warn("stage catalog fetch failed, continuing with empty catalog", zap.Error(err))
		return NewCatalog(nil)
	}
	return NewCatalog(resp)
}

// FetchContacts retrieves and normalizes every contact created inside the
// window, sorted newest first.
func (s *Service) FetchContacts(ctx context.Context, win Window) ([]ContactRow, FetchStats) {
	stats := newStats()
	startMS, endMS, err := win.Range()
	if err != nil {
		zap.L().Warn("invalid contact window", zap.String("run_id", stats.RunID), zap.Error(err))
		stats.Outcome = OutcomeDegraded
		return nil, stats
	}

	req := hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{{Filters: []hubspot.Filter{
			{PropertyName: "createdate", Operator: "GTE", Value: strconv.FormatInt(startMS, 10)},
			{PropertyName: "createdate", Operator: "LTE", Value: strconv.FormatInt(endMS, 10)},
		}}},
		Properties: ContactProperties,
		Limit:      pageSize,
		Sorts:      []hubspot.Sort{{PropertyName: "createdate", Direction: "DESCENDING"}},
	}

	records := s.fetchAll(ctx, "contacts", s.hs.SearchContacts, req, &stats)
	if stats.Outcome != OutcomeOK {
		return nil, stats
	}
	rows := TransformContacts(records, s.loc)
	stats.Records = len(rows)
	return rows, stats
}

// FetchDeals retrieves and normalizes every deal closed inside the window
// whose stage is in stageIDs. With no stage ids configured it is a no-op:
// issuing a stage-less deal search would sweep in non-customer deals.
func (s *Service) FetchDeals(ctx context.Context, win Window, stageIDs []string) ([]DealRow, FetchStats) {
	stats := newStats()
	if len(stageIDs) == 0 {
		zap.L().Info("no customer stages configured, skipping deal fetch", zap.String("run_id", stats.RunID))
		return nil, stats
	}

	startMS, endMS, err := win.Range()
	if err != nil {
		zap.L().Warn("invalid deal window", zap.String("run_id", stats.RunID), zap.Error(err))
		stats.Outcome = OutcomeDegraded
		return nil, stats
	}

	req := hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{{Filters: []hubspot.Filter{
			{PropertyName: "closedate", Operator: "GTE", Value: strconv.FormatInt(startMS, 10)},
			{PropertyName: "closedate", Operator: "LTE", Value: strconv.FormatInt(endMS, 10)},
			{PropertyName: "dealstage", Operator: "IN", Values: stageIDs},
		}}},
		Properties: DealProperties,
		Limit:      pageSize,
		Sorts:      []hubspot.Sort{{PropertyName: "closedate", Direction: "DESCENDING"}},
	}

	records := s.fetchAll(ctx, "deals", s.hs.SearchDeals, req, &stats)
	if stats.Outcome != OutcomeOK {
		return nil, stats
	}
	rows := TransformDeals(records, s.loc)
	stats.Records = len(rows)
	return rows, stats
}

func newStats() FetchStats {
	return FetchStats{RunID: uuid.NewString(), Outcome: OutcomeOK}
}

// fetchAll drives the pagination state machine: issue a search, accumulate
// results, follow paging.next.after until the cursor is absent or a page
// comes back empty. A 429 moves the request into bounded backoff via the
// retry policy; any other failure aborts the whole fetch and discards the
// accumulator so the caller sees an empty result with a zero count.
func (s *Service) fetchAll(
	ctx context.Context,
	object string,
	search func(ctx context.Context, req hubspot.SearchRequest) (*hubspot.SearchResponse, error),
	req hubspot.SearchRequest,
	stats *FetchStats,
) []hubspot.Record {
	log := zap.L().With(zap.String("object", object), zap.String("run_id", stats.RunID))

	retry := s.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("hubspot", object+" search")
	}

	var records []hubspot.Record
	after := ""
	for {
		req.After = after
		page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*hubspot.SearchResponse, error) {
			resp, err := search(ctx, req)
			if err != nil && hubspot.IsRateLimit(err) {
				return nil, resilience.NewTransientError(err, http.StatusTooManyRequests)
			}
			return resp, err
		})
		if err != nil {
			stats.Outcome = OutcomeDegraded
			if resilience.RateLimitExhausted(err) {
				stats.Outcome = OutcomeRateLimited
			}
			log.Warn("fetch aborted, returning no data",
				zap.String("outcome", string(stats.Outcome)),
				zap.Int("requests", stats.Requests),
				zap.Error(err),
			)
			return nil
		}

		stats.Requests++
		if len(page.Results) == 0 {
			break
		}
		records = append(records, page.Results...)

		after = page.NextAfter()
		if after == "" {
			break
		}

		// Pace between pages to stay under the search rate limit.
		s.sleep(s.pageDelay)
	}

	log.Info("fetch complete",
		zap.Int("requests", stats.Requests),
		zap.Int("records", len(records)),
	)
	return records
}
