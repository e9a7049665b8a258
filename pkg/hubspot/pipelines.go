package hubspot

import (
	"context"

	"github.com/rotisserie/eris"
)

const dealPipelinesPath = "/crm/v3/pipelines/deals"

func (c *httpClient) ListDealPipelines(ctx context.Context) (*PipelinesResponse, error) {
	var resp PipelinesResponse
	if err := c.get(ctx, dealPipelinesPath, &resp); err != nil {
		return nil, eris.Wrap(err, "hubspot: list deal pipelines")
	}
	return &resp, nil
}
