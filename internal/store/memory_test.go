package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

func testCatalog() *funnel.Catalog {
	return funnel.NewCatalog(&hubspot.PipelinesResponse{
		Results: []hubspot.Pipeline{
			{Label: "Sales", Stages: []hubspot.PipelineStage{
				{ID: "s1", Label: "Closed Won"},
				{ID: "s2", Label: "Negotiation"},
			}},
		},
	})
}

func TestMemory_Empty(t *testing.T) {
	t.Parallel()
	m := New()
	assert.Equal(t, 0, m.Catalog().Len())
	assert.Empty(t, m.CustomerStages())
	assert.Empty(t, m.Contacts())
	assert.Empty(t, m.Deals())
	assert.Nil(t, m.KPIs())
	assert.True(t, m.FetchedAt().IsZero())
}

func TestMemory_SetCatalog(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetCatalog(testCatalog())
	assert.Equal(t, 2, m.Catalog().Len())

	// Nil resets to an empty, usable catalog.
	m.SetCatalog(nil)
	require.NotNil(t, m.Catalog())
	assert.Equal(t, 0, m.Catalog().Len())
}

func TestMemory_CustomerStagesCopied(t *testing.T) {
	t.Parallel()
	m := New()
	ids := []string{"s1", "s2"}
	m.SetCustomerStages(ids)

	ids[0] = "mutated"
	got := m.CustomerStages()
	assert.Equal(t, []string{"s1", "s2"}, got)

	got[1] = "mutated"
	assert.Equal(t, []string{"s1", "s2"}, m.CustomerStages())
}

func TestMemory_ReplaceTables(t *testing.T) {
	t.Parallel()
	m := New()
	m.ReplaceTables(
		[]funnel.ContactRow{{ID: "1", LeadStatus: funnel.StatusHot}},
		[]funnel.DealRow{{DealName: "d", Amount: 100, IsCustomer: true}},
	)
	assert.Len(t, m.Contacts(), 1)
	assert.Len(t, m.Deals(), 1)
	assert.False(t, m.FetchedAt().IsZero())

	// Refetch replaces rather than merges.
	m.ReplaceTables([]funnel.ContactRow{
		{ID: "2", LeadStatus: funnel.StatusCold},
		{ID: "3", LeadStatus: funnel.StatusWarm},
	}, nil)
	require.Len(t, m.Contacts(), 2)
	assert.Equal(t, "2", m.Contacts()[0].ID)
	assert.Empty(t, m.Deals())
}

func TestMemory_KPIsRecomputed(t *testing.T) {
	t.Parallel()
	m := New()
	m.ReplaceTables(
		[]funnel.ContactRow{
			{ID: "1", LeadStatus: funnel.StatusHot},
			{ID: "2", LeadStatus: funnel.StatusWarm},
		},
		[]funnel.DealRow{{DealName: "d", Amount: 500, IsCustomer: true}},
	)

	k := m.KPIs()
	require.NotNil(t, k)
	assert.Equal(t, 2, k.TotalLeads)
	assert.Equal(t, 1, k.Customers)
	assert.Equal(t, 500.0, k.TotalRevenue)

	m.Clear()
	assert.Nil(t, m.KPIs())
}

func TestMemory_Remediate(t *testing.T) {
	t.Parallel()
	m := New()
	m.ReplaceTables([]funnel.ContactRow{
		{ID: "1", LeadStatus: "Customer"},
		{ID: "2", LeadStatus: funnel.StatusHot},
	}, nil)

	assert.Equal(t, 1, m.Remediate())
	assert.Equal(t, funnel.StatusQualifiedLead, m.Contacts()[0].LeadStatus)
	assert.Equal(t, 0, m.Remediate())
}

func TestMemory_ClearKeepsCatalogAndStages(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetCatalog(testCatalog())
	m.SetCustomerStages([]string{"s1"})
	m.ReplaceTables([]funnel.ContactRow{{ID: "1"}}, nil)

	m.Clear()
	assert.Empty(t, m.Contacts())
	assert.Empty(t, m.Deals())
	assert.Equal(t, 2, m.Catalog().Len())
	assert.Equal(t, []string{"s1"}, m.CustomerStages())
}
