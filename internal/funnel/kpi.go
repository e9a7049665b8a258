package funnel

import "math"

// KPIs holds the derived funnel and revenue metrics for one fetch. Always
// recomputed from the current tables, never persisted.
type KPIs struct {
	TotalLeads            int                `json:"total_leads"`
	DealLeads             int                `json:"deal_leads"`
	StatusCounts          map[LeadStatus]int `json:"status_counts"`
	Customers             int                `json:"customers"`
	TotalRevenue          float64            `json:"total_revenue"`
	AvgRevenuePerCustomer float64            `json:"avg_revenue_per_customer"`
	LeadToCustomerPct     float64            `json:"lead_to_customer_pct"`
	LeadToDealPct         float64            `json:"lead_to_deal_pct"`
	DealToCustomerPct     float64            `json:"deal_to_customer_pct"`
}

// ComputeKPIs aggregates the normalized tables into funnel KPIs. It returns
// nil when the contact table is empty, regardless of deal table content;
// callers must check before rendering.
//
// DealLeads deliberately folds the customer count into the deal-funnel
// denominator even though customers come from the deal table, not the
// contact table: DealLeads = Hot + Warm + Cold + Customers by construction.
func ComputeKPIs(contacts []ContactRow, deals []DealRow) *KPIs {
	if len(contacts) == 0 {
		return nil
	}

	counts := make(map[LeadStatus]int, len(CanonicalStatuses))
	for _, st := range CanonicalStatuses {
		counts[st] = 0
	}
	for _, c := range contacts {
		if _, ok := counts[c.LeadStatus]; ok {
			counts[c.LeadStatus]++
		}
	}

	customers := len(deals)
	var revenue float64
	for _, d := range deals {
		revenue += d.Amount
	}

	avg := 0.0
	if customers > 0 {
		avg = math.Round(revenue / float64(customers))
	}

	k := &KPIs{
		TotalLeads:            len(contacts),
		StatusCounts:          counts,
		Customers:             customers,
		TotalRevenue:          revenue,
		AvgRevenuePerCustomer: avg,
	}
	k.DealLeads = counts[StatusHot] + counts[StatusWarm] + counts[StatusCold] + customers
	k.LeadToCustomerPct = pct(customers, k.TotalLeads)
	k.LeadToDealPct = pct(k.DealLeads, k.TotalLeads)
	k.DealToCustomerPct = pct(customers, k.DealLeads)
	return k
}

// pct returns 100*num/den rounded to one decimal place, or 0 when den is 0.
func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*1000) / 10
}
