// Package store holds the in-memory session cache for the funnel pipeline:
// the stage catalog, the confirmed customer-stage set, and the last-fetched
// tables. Refetches replace, never merge.
package store

import (
	"sync"
	"time"

	"github.com/sells-group/funnel-cli/internal/funnel"
)

// Memory is a thread-safe in-memory session store. Nothing survives the
// process; persistence is out of scope for the pipeline.
type Memory struct {
	mu             sync.RWMutex
	catalog        *funnel.Catalog
	customerStages []string
	contacts       []funnel.ContactRow
	deals          []funnel.DealRow
	fetchedAt      time.Time
}

// New creates an empty session store.
func New() *Memory {
	return &Memory{catalog: funnel.NewCatalog(nil)}
}

// SetCatalog replaces the stage catalog.
func (m *Memory) SetCatalog(c *funnel.Catalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil {
		c = funnel.NewCatalog(nil)
	}
	m.catalog = c
}

// Catalog returns the current stage catalog.
func (m *Memory) Catalog() *funnel.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// SetCustomerStages replaces the confirmed customer-stage id set.
func (m *Memory) SetCustomerStages(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerStages = append([]string(nil), ids...)
}

// CustomerStages returns a copy of the confirmed customer-stage id set.
func (m *Memory) CustomerStages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.customerStages...)
}

// ReplaceTables swaps in freshly fetched tables, discarding the old ones.
func (m *Memory) ReplaceTables(contacts []funnel.ContactRow, deals []funnel.DealRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = contacts
	m.deals = deals
	m.fetchedAt = time.Now()
}

// Contacts returns the last-fetched contact table.
func (m *Memory) Contacts() []funnel.ContactRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contacts
}

// Deals returns the last-fetched deal table.
func (m *Memory) Deals() []funnel.DealRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deals
}

// FetchedAt returns when the tables were last replaced, zero if never.
func (m *Memory) FetchedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchedAt
}

// KPIs recomputes the funnel KPIs from the current tables. Nil when the
// contact table is empty.
func (m *Memory) KPIs() *funnel.KPIs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return funnel.ComputeKPIs(m.contacts, m.deals)
}

// Remediate rewrites any "Customer"-labeled lead in the cached contact
// table to Qualified Lead, returning the number of rows fixed.
func (m *Memory) Remediate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return funnel.Remediate(m.contacts)
}

// Clear discards the fetched tables, keeping the stage catalog and the
// confirmed stage set.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = nil
	m.deals = nil
	m.fetchedAt = time.Time{}
}
