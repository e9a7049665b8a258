package hubspot

import (
	"context"

	"github.com/rotisserie/eris"
)

const (
	contactsSearchPath = "/crm/v3/objects/contacts/search"
	dealsSearchPath    = "/crm/v3/objects/deals/search"
)

func (c *httpClient) SearchContacts(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, contactsSearchPath, req, &resp); err != nil {
		return nil, eris.Wrap(err, "hubspot: search contacts")
	}
	return &resp, nil
}

func (c *httpClient) SearchDeals(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, dealsSearchPath, req, &resp); err != nil {
		return nil, eris.Wrap(err, "hubspot: search deals")
	}
	return &resp, nil
}
