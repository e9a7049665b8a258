package funnel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/resilience"
	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// searchStep is one scripted response from the fake CRM.
type searchStep struct {
	resp *hubspot.SearchResponse
	err  error
}

// scriptedClient returns canned search responses in order, recording every
// request it sees.
type scriptedClient struct {
	steps        []searchStep
	reqs         []hubspot.SearchRequest
	pipelines    *hubspot.PipelinesResponse
	pipelinesErr error
}

func (c *scriptedClient) next(req hubspot.SearchRequest) (*hubspot.SearchResponse, error) {
	c.reqs = append(c.reqs, req)
	if len(c.steps) == 0 {
		return nil, fmt.Errorf("unexpected request %d", len(c.reqs))
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.resp, step.err
}

func (c *scriptedClient) SearchContacts(_ context.Context, req hubspot.SearchRequest) (*hubspot.SearchResponse, error) {
	return c.next(req)
}

func (c *scriptedClient) SearchDeals(_ context.Context, req hubspot.SearchRequest) (*hubspot.SearchResponse, error) {
	return c.next(req)
}

func (c *scriptedClient) ListDealPipelines(_ context.Context) (*hubspot.PipelinesResponse, error) {
	return c.pipelines, c.pipelinesErr
}

func contactRecords(n int) []hubspot.Record {
	recs := make([]hubspot.Record, n)
	for i := range recs {
		recs[i] = hubspot.Record{
			ID: fmt.Sprintf("c%d", i),
			Properties: map[string]string{
				"firstname":      "Lead",
				"hs_lead_status": "warm",
			},
		}
	}
	return recs
}

func page(recs []hubspot.Record, after string) *hubspot.SearchResponse {
	resp := &hubspot.SearchResponse{Total: len(recs), Results: recs}
	if after != "" {
		resp.Paging = &hubspot.Paging{Next: &hubspot.PagingNext{After: after}}
	}
	return resp
}

// newTestService builds a Service with instant pacing and backoff, counting
// both kinds of sleep.
func newTestService(c hubspot.Client, pacing, backoff *int) *Service {
	retry := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		JitterFraction: 0,
		Sleep: func(time.Duration) {
			if backoff != nil {
				*backoff++
			}
		},
	}
	return NewService(c, ist,
		WithRetryConfig(retry),
		WithSleep(func(time.Duration) {
			if pacing != nil {
				*pacing++
			}
		}),
	)
}

func testWindow() Window {
	return Window{From: "2024-01-01", To: "2024-01-31", Loc: ist}
}

func TestFetchContacts_MultiPage(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page(contactRecords(100), "100")},
		{resp: page(contactRecords(100), "200")},
		{resp: page(contactRecords(37), "")},
	}}

	var pacing int
	svc := newTestService(client, &pacing, nil)

	rows, stats := svc.FetchContacts(context.Background(), testWindow())
	assert.Len(t, rows, 237)
	assert.Equal(t, 237, stats.Records)
	assert.Equal(t, 3, stats.Requests)
	assert.Equal(t, OutcomeOK, stats.Outcome)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 2, pacing, "one pacing sleep between each successful page pair")

	// Cursor must be threaded through: absent, then the server's values.
	require.Len(t, client.reqs, 3)
	assert.Equal(t, "", client.reqs[0].After)
	assert.Equal(t, "100", client.reqs[1].After)
	assert.Equal(t, "200", client.reqs[2].After)
}

func TestFetchContacts_RequestShape(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page(nil, "")},
	}}
	svc := newTestService(client, nil, nil)

	_, _ = svc.FetchContacts(context.Background(), testWindow())

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, 100, req.Limit)
	assert.Equal(t, ContactProperties, req.Properties)
	require.Len(t, req.FilterGroups, 1)
	require.Len(t, req.FilterGroups[0].Filters, 2)
	assert.Equal(t, "createdate", req.FilterGroups[0].Filters[0].PropertyName)
	assert.Equal(t, "GTE", req.FilterGroups[0].Filters[0].Operator)
	assert.Equal(t, "LTE", req.FilterGroups[0].Filters[1].Operator)
	require.Len(t, req.Sorts, 1)
	assert.Equal(t, "createdate", req.Sorts[0].PropertyName)
	assert.Equal(t, "DESCENDING", req.Sorts[0].Direction)
}

func TestFetchContacts_RateLimitRetried(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page(contactRecords(100), "100")},
		{err: &hubspot.APIError{StatusCode: 429, Body: "throttled"}},
		{resp: page(contactRecords(37), "")},
	}}

	var pacing, backoff int
	svc := newTestService(client, &pacing, &backoff)

	rows, stats := svc.FetchContacts(context.Background(), testWindow())
	assert.Len(t, rows, 137)
	assert.Equal(t, OutcomeOK, stats.Outcome)
	assert.Equal(t, 2, stats.Requests)
	assert.Equal(t, 1, backoff, "exactly one backoff sleep for the single 429")

	// The retried request must carry the same cursor as the throttled one.
	require.Len(t, client.reqs, 3)
	assert.Equal(t, client.reqs[1].After, client.reqs[2].After)
}

func TestFetchContacts_RateLimitExhausted(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{err: &hubspot.APIError{StatusCode: 429, Body: "throttled"}},
		{err: &hubspot.APIError{StatusCode: 429, Body: "throttled"}},
		{err: &hubspot.APIError{StatusCode: 429, Body: "throttled"}},
	}}

	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchContacts(context.Background(), testWindow())
	assert.Nil(t, rows)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, OutcomeRateLimited, stats.Outcome)
}

func TestFetchContacts_ServerErrorAborts(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page(contactRecords(100), "100")},
		{err: &hubspot.APIError{StatusCode: 500, Body: "boom"}},
	}}

	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchContacts(context.Background(), testWindow())
	assert.Nil(t, rows, "partial pages are discarded on abort")
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, OutcomeDegraded, stats.Outcome)
	assert.Len(t, client.reqs, 2, "500 is not retried")
}

func TestFetchContacts_EmptyPageTerminates(t *testing.T) {
	// A zero-record page stops pagination even if a cursor is present.
	client := &scriptedClient{steps: []searchStep{
		{resp: page(nil, "100")},
	}}

	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchContacts(context.Background(), testWindow())
	assert.Empty(t, rows)
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, OutcomeOK, stats.Outcome)
}

func TestFetchContacts_InvalidWindow(t *testing.T) {
	client := &scriptedClient{}
	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchContacts(context.Background(), Window{From: "bad", To: "2024-01-31", Loc: ist})
	assert.Nil(t, rows)
	assert.Equal(t, OutcomeDegraded, stats.Outcome)
	assert.Empty(t, client.reqs)
}

func TestFetchContacts_RowsClassified(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page([]hubspot.Record{
			{ID: "1", Properties: map[string]string{"hs_lead_status": "closed_won_hot"}},
			{ID: "2", Properties: map[string]string{"hs_lead_status": "customer"}},
		}, "")},
	}}

	svc := newTestService(client, nil, nil)

	rows, _ := svc.FetchContacts(context.Background(), testWindow())
	require.Len(t, rows, 2)
	assert.Equal(t, StatusHot, rows[0].LeadStatus)
	assert.Equal(t, StatusQualifiedLead, rows[1].LeadStatus)
	for _, r := range rows {
		assert.NotEqual(t, LeadStatus("Customer"), r.LeadStatus)
	}
}

func TestFetchDeals_ServerErrorAborts(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page([]hubspot.Record{{ID: "9", Properties: map[string]string{"dealname": "D"}}}, "next")},
		{err: &hubspot.APIError{StatusCode: 500, Body: "boom"}},
	}}

	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchDeals(context.Background(), testWindow(), []string{"s1"})
	assert.Nil(t, rows, "partial pages are discarded on abort")
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, OutcomeDegraded, stats.Outcome)
}

func TestFetchDeals_NoStagesIsNoOp(t *testing.T) {
	client := &scriptedClient{}
	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchDeals(context.Background(), testWindow(), nil)
	assert.Nil(t, rows)
	assert.Equal(t, 0, stats.Requests)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, OutcomeOK, stats.Outcome)
	assert.Empty(t, client.reqs, "no HTTP request without a stage set")
}

func TestFetchDeals_FilterShape(t *testing.T) {
	client := &scriptedClient{steps: []searchStep{
		{resp: page([]hubspot.Record{
			{ID: "9", Properties: map[string]string{"dealname": "D", "amount": "5,000"}},
		}, "")},
	}}

	svc := newTestService(client, nil, nil)

	rows, stats := svc.FetchDeals(context.Background(), testWindow(), []string{"s1", "s3"})
	require.Len(t, rows, 1)
	assert.Equal(t, 5000.0, rows[0].Amount)
	assert.True(t, rows[0].IsCustomer)
	assert.Equal(t, 1, stats.Records)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, DealProperties, req.Properties)
	require.Len(t, req.FilterGroups, 1)
	require.Len(t, req.FilterGroups[0].Filters, 3)
	assert.Equal(t, "closedate", req.FilterGroups[0].Filters[0].PropertyName)
	assert.Equal(t, "dealstage", req.FilterGroups[0].Filters[2].PropertyName)
	assert.Equal(t, "IN", req.FilterGroups[0].Filters[2].Operator)
	assert.Equal(t, []string{"s1", "s3"}, req.FilterGroups[0].Filters[2].Values)
	require.Len(t, req.Sorts, 1)
	assert.Equal(t, "closedate", req.Sorts[0].PropertyName)
}

func TestFetchStageCatalog(t *testing.T) {
	client := &scriptedClient{pipelines: testPipelines()}
	svc := newTestService(client, nil, nil)

	catalog := svc.FetchStageCatalog(context.Background())
	assert.Equal(t, 4, catalog.Len())
}

func TestFetchStageCatalog_DegradesToEmpty(t *testing.T) {
	client := &scriptedClient{pipelinesErr: &hubspot.APIError{StatusCode: 503, Body: "down"}}
	svc := newTestService(client, nil, nil)

	catalog := svc.FetchStageCatalog(context.Background())
	require.NotNil(t, catalog)
	assert.Equal(t, 0, catalog.Len())
}
