package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vn.io.arda/notifeed/internal/domain"
)

func TestFallbackID_Deterministic(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)

	a := domain.FallbackID(ts, "Trip assigned")
	b := domain.FallbackID(ts.Add(500*time.Microsecond), "Trip assigned")
	c := domain.FallbackID(ts, "Trip cancelled")

	assert.Equal(t, a, b, "sub-millisecond differences share an id")
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "live-")
}

func TestPersistedID_RoundTrip(t *testing.T) {
	id := domain.PersistedID("42")
	assert.Equal(t, "db-42", id)

	raw, ok := domain.BackendID(id)
	assert.True(t, ok)
	assert.Equal(t, "42", raw)

	_, ok = domain.BackendID("live-abc")
	assert.False(t, ok)
}

func TestFromStored(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := domain.FromStored(domain.StoredNotification{
		ID: "9", Title: "Expense", Message: "Approved", Type: "expense_status", CreatedAt: at, IsRead: true,
	})

	assert.Equal(t, "db-9", n.ID)
	assert.Equal(t, domain.CategoryExpenseStatus, n.Category)
	assert.Equal(t, domain.OriginPersisted, n.Origin)
	assert.Equal(t, domain.ScopeUser, n.Scope)
	assert.True(t, n.Read)
	assert.Equal(t, at, n.Timestamp)
}

func TestRole(t *testing.T) {
	assert.Equal(t, domain.RoleDriver, domain.ParseRole(" driver "))
	assert.True(t, domain.RoleConsultant.Known())
	assert.False(t, domain.ParseRole("auditor").Known())
	assert.True(t, domain.RoleManager.SeesDashboard())
	assert.False(t, domain.RoleConsultant.SeesDashboard())
}
