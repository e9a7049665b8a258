package funnel

import (
	"strings"

	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// StageInfo describes one deal pipeline stage. Immutable once fetched.
type StageInfo struct {
	StageID       string `json:"stage_id" yaml:"stage_id"`
	StageLabel    string `json:"stage_label" yaml:"stage_label"`
	PipelineLabel string `json:"pipeline_label" yaml:"pipeline_label"`
}

// Catalog holds the full deal stage catalog. The slice preserves the API's
// pipeline/stage order so downstream detection output is stable; the map
// provides id lookup.
type Catalog struct {
	stages []StageInfo
	byID   map[string]StageInfo
}

// NewCatalog flattens a pipelines response into a stage catalog.
// A nil response yields an empty, usable catalog.
func NewCatalog(resp *hubspot.PipelinesResponse) *Catalog {
	c := &Catalog{byID: make(map[string]StageInfo)}
	if resp == nil {
		return c
	}
	for _, p := range resp.Results {
		for _, s := range p.Stages {
			info := StageInfo{
				StageID:       s.ID,
				StageLabel:    s.Label,
				PipelineLabel: p.Label,
			}
			if _, ok := c.byID[info.StageID]; ok {
				continue
			}
			c.stages = append(c.stages, info)
			c.byID[info.StageID] = info
		}
	}
	return c
}

// Stages returns the catalog's stages in API order.
func (c *Catalog) Stages() []StageInfo {
	return c.stages
}

// Lookup returns the stage with the given id.
func (c *Catalog) Lookup(id string) (StageInfo, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Len returns the number of stages in the catalog.
func (c *Catalog) Len() int {
	return len(c.stages)
}

// customerStageTerms is the vocabulary of customer-indicating stage label
// substrings. Matching is a heuristic: the result is a candidate list for
// human confirmation, not an authoritative stage set.
var customerStageTerms = []string{
	"admission confirmed",
	"admission_confirmed",
	"closed won",
	"closed_won",
	"closedwon",
	"customer",
	"won",
}

// DetectCustomerStages scans the catalog for stages whose lower-cased label
// contains a customer vocabulary term. The first matching term wins for a
// stage, each stage appears at most once, and output order follows catalog
// order.
func DetectCustomerStages(c *Catalog) []StageInfo {
	var detected []StageInfo
	for _, s := range c.Stages() {
		label := strings.ToLower(s.StageLabel)
		for _, term := range customerStageTerms {
			if strings.Contains(label, term) {
				detected = append(detected, s)
				break
			}
		}
	}
	return detected
}

// StageIDs extracts the stage ids from a detection result, in order.
func StageIDs(stages []StageInfo) []string {
	ids := make([]string, 0, len(stages))
	for _, s := range stages {
		ids = append(ids, s.StageID)
	}
	return ids
}
