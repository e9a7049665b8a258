package funnel

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LeadStatus is a canonical lead status category. Classification of lead
// data only ever produces the constants below or a title-cased passthrough
// of an unrecognized raw value; "Customer" is reserved for deal-derived
// records and is never a member of this set.
type LeadStatus string

const (
	StatusCold          LeadStatus = "Cold"
	StatusWarm          LeadStatus = "Warm"
	StatusHot           LeadStatus = "Hot"
	StatusNewLead       LeadStatus = "New Lead"
	StatusNotConnected  LeadStatus = "Not Connected"
	StatusNotInterested LeadStatus = "Not Interested"
	StatusNotQualified  LeadStatus = "Not Qualified"
	StatusDuplicate     LeadStatus = "Duplicate"
	StatusQualifiedLead LeadStatus = "Qualified Lead"
	StatusUnknown       LeadStatus = "Unknown"
)

// CanonicalStatuses lists every fixed category, in funnel display order.
var CanonicalStatuses = []LeadStatus{
	StatusHot,
	StatusWarm,
	StatusCold,
	StatusNewLead,
	StatusQualifiedLead,
	StatusNotConnected,
	StatusNotInterested,
	StatusNotQualified,
	StatusDuplicate,
	StatusUnknown,
}

// customerKeywords are substrings that indicate a closed/won customer.
// Any raw status containing one of these is re-routed before the normal
// rules run, so lead classification can never yield "Customer".
var customerKeywords = []string{"customer", "closed", "won", "admission", "confirmed"}

// statusSynonyms maps exact short codes to their canonical category.
// Consulted only after the substring rules have all missed.
var statusSynonyms = map[string]LeadStatus{
	"hot":            StatusHot,
	"warm":           StatusWarm,
	"cold":           StatusCold,
	"prospect":       StatusWarm,
	"hot_prospect":   StatusHot,
	"warm_prospect":  StatusWarm,
	"cold_prospect":  StatusCold,
	"not_connected":  StatusNotConnected,
	"not connected":  StatusNotConnected,
	"nc":             StatusNotConnected,
	"not_interested": StatusNotInterested,
	"not_qualified":  StatusNotQualified,
	"unqualified":    StatusNotQualified,
	"duplicate":      StatusDuplicate,
	"unknown":        StatusUnknown,
}

// Classify maps a raw, free-text lead status to its canonical category.
// It is pure and deterministic, and the rule order is load-bearing:
//
//  1. empty input -> Unknown
//  2. customer-keyword re-route (never returns "Customer")
//  3. ordered substring rules
//  4. exact synonym lookup
//  5. title-cased passthrough of the raw value
//
// The legacy classifier matched "nc" as a bare substring, which misfired on
// any text containing those two characters; "nc" is now honored only as an
// exact token via the synonym table.
func Classify(raw string) LeadStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusUnknown
	}

	for _, kw := range customerKeywords {
		if strings.Contains(s, kw) {
			switch {
			case strings.Contains(s, "hot"):
				return StatusHot
			case strings.Contains(s, "warm"):
				return StatusWarm
			case strings.Contains(s, "cold"):
				return StatusCold
			default:
				return StatusQualifiedLead
			}
		}
	}

	switch {
	case strings.Contains(s, "prospect"):
		switch {
		case strings.Contains(s, "hot"):
			return StatusHot
		case strings.Contains(s, "warm"):
			return StatusWarm
		default:
			return StatusWarm
		}
	case strings.Contains(s, "not_connect"):
		return StatusNotConnected
	case strings.Contains(s, "not_interest"):
		return StatusNotInterested
	case strings.Contains(s, "not_qualif"):
		return StatusNotQualified
	case strings.Contains(s, "duplicate"):
		return StatusDuplicate
	case strings.Contains(s, "new"), strings.Contains(s, "open"):
		return StatusNewLead
	}

	if st, ok := statusSynonyms[s]; ok {
		return st
	}

	// Preserve unrecognized values rather than discarding them.
	return LeadStatus(titleCase(s))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// Remediate rewrites any contact row that carries the literal "Customer"
// status to Qualified Lead and returns the number of rows fixed. A non-zero
// count indicates lead data that bypassed Classify, which is a data
// integrity defect rather than an expected state.
func Remediate(rows []ContactRow) int {
	fixed := 0
	for i := range rows {
		if rows[i].LeadStatus == "Customer" {
			rows[i].LeadStatus = StatusQualifiedLead
			fixed++
		}
	}
	return fixed
}
