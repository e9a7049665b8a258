package hubspot

// Filter is a single property comparison inside a filter group.
type Filter struct {
	PropertyName string   `json:"propertyName"`
	Operator     string   `json:"operator"`
	Value        string   `json:"value,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// FilterGroup is an AND-combined set of filters. Groups are OR-combined
// by the search endpoint; the pipeline only ever sends one group.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// Sort orders search results by a single property.
type Sort struct {
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

// SearchRequest is the body for the CRM v3 object search endpoints.
type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	Sorts        []Sort        `json:"sorts,omitempty"`
	After        string        `json:"after,omitempty"`
}

// Record is a single CRM object as returned by the search endpoints:
// an identifier plus an opaque property bag. Records are never mutated.
type Record struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Paging carries the continuation cursor for the next page, if any.
type Paging struct {
	Next *PagingNext `json:"next,omitempty"`
}

// PagingNext holds the opaque cursor value.
type PagingNext struct {
	After string `json:"after"`
}

// SearchResponse is the response from the CRM v3 search endpoints.
type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Record `json:"results"`
	Paging  *Paging  `json:"paging,omitempty"`
}

// NextAfter returns the continuation cursor, or "" when this is the last page.
func (r *SearchResponse) NextAfter() string {
	if r.Paging == nil || r.Paging.Next == nil {
		return ""
	}
	return r.Paging.Next.After
}

// PipelineStage is a single stage within a deal pipeline.
type PipelineStage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Pipeline is a named deal pipeline with its ordered stages.
type Pipeline struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Stages []PipelineStage `json:"stages"`
}

// PipelinesResponse is the response from GET /crm/v3/pipelines/deals.
type PipelinesResponse struct {
	Results []Pipeline `json:"results"`
}
