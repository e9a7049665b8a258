package funnel

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// ContactRow is a normalized lead. LeadStatus is never the literal
// "Customer"; Classify guarantees that for every transformed row.
type ContactRow struct {
	ID            string     `json:"id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Course        string     `json:"course"`
	LeadStatus    LeadStatus `json:"lead_status"`
	LeadStatusRaw string     `json:"lead_status_raw"`
	CreatedDate   string     `json:"created_date"`
}

// DealRow is a normalized closed-deal customer record.
type DealRow struct {
	DealName   string  `json:"deal_name"`
	Course     string  `json:"course"`
	Amount     float64 `json:"amount"`
	CloseDate  string  `json:"close_date"`
	IsCustomer bool    `json:"is_customer"`
}

// ContactProperties are the contact properties requested from the CRM.
var ContactProperties = []string{
	"firstname", "lastname", "email", "phone",
	"course", "program", "product", "service",
	"hs_lead_status", "lead_status", "createdate",
}

// DealProperties are the deal properties requested from the CRM.
var DealProperties = []string{
	"dealname", "amount", "closedate", "dealstage",
	"course", "program", "product",
}

// contactCourseFields is the priority order for the course/program value on
// contacts; dealCourseFields is the same for deals (no service field).
var (
	contactCourseFields = []string{"course", "program", "product", "service"}
	dealCourseFields    = []string{"course", "program", "product"}
	leadStatusFields    = []string{"hs_lead_status", "lead_status"}
)

// TransformContact normalizes a raw contact record into a ContactRow.
func TransformContact(rec hubspot.Record, loc *time.Location) ContactRow {
	raw := firstNonEmpty(rec.Properties, leadStatusFields)
	return ContactRow{
		ID:            rec.ID,
		FullName:      joinName(rec.Properties["firstname"], rec.Properties["lastname"]),
		Email:         rec.Properties["email"],
		Phone:         rec.Properties["phone"],
		Course:        firstNonEmpty(rec.Properties, contactCourseFields),
		LeadStatus:    Classify(raw),
		LeadStatusRaw: raw,
		CreatedDate:   normalizeDate(rec.Properties["createdate"], loc),
	}
}

// TransformContacts normalizes a batch of raw contact records.
func TransformContacts(recs []hubspot.Record, loc *time.Location) []ContactRow {
	rows := make([]ContactRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, TransformContact(rec, loc))
	}
	return rows
}

// TransformDeal normalizes a raw deal record into a DealRow. Deals reaching
// this transformer are already filtered to customer-stage membership, so
// every row carries the customer marker.
func TransformDeal(rec hubspot.Record, loc *time.Location) DealRow {
	return DealRow{
		DealName:   rec.Properties["dealname"],
		Course:     firstNonEmpty(rec.Properties, dealCourseFields),
		Amount:     parseAmount(rec.Properties["amount"]),
		CloseDate:  normalizeDate(rec.Properties["closedate"], loc),
		IsCustomer: true,
	}
}

// TransformDeals normalizes a batch of raw deal records.
func TransformDeals(recs []hubspot.Record, loc *time.Location) []DealRow {
	rows := make([]DealRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, TransformDeal(rec, loc))
	}
	return rows
}

// firstNonEmpty returns the first non-empty trimmed property value among keys.
func firstNonEmpty(props map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(props[k]); v != "" {
			return v
		}
	}
	return ""
}

// joinName concatenates first and last name with a single space, tolerating
// empty parts.
func joinName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// parseAmount parses a deal amount as a decimal number after stripping
// thousands separators. Any parse failure, and any negative value, yields 0.
func parseAmount(raw string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// normalizeDate renders a CRM timestamp property as a YYYY-MM-DD date in
// loc. The API returns either RFC 3339 strings or epoch milliseconds; an
// unparseable value passes through unchanged rather than aborting the batch.
func normalizeDate(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc).Format(DateLayout)
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc).Format(DateLayout)
	}
	return raw
}
