// Package present builds the two read-only views over a feed: the badge and
// dropdown panel, and the transient toast stream.
package present

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/audience"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/store"
)

// Panel is the on-demand part of the dropdown. Which collections are filled
// depends on the role.
type Panel struct {
	Alerts           []domain.Alert           `json:"alerts"`
	PendingApprovals []domain.PendingApproval `json:"pendingApprovals"`
	AwaitingDeposit  []domain.Booking         `json:"awaitingDeposit"`
}

func (p Panel) unreadAlerts() int {
	n := 0
	for _, a := range p.Alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// Dropdown is the role-filtered view of the whole feed plus the panel.
type Dropdown struct {
	store   *store.Store
	policy  audience.Policy
	session domain.Session
	dash    domain.DashboardService

	mu    sync.RWMutex
	panel Panel
}

// NewDropdown creates the dropdown adapter for a session. dash may be nil.
func NewDropdown(s *store.Store, session domain.Session, dash domain.DashboardService) *Dropdown {
	return &Dropdown{
		store:   s,
		policy:  audience.PolicyFor(session.Role),
		session: session,
		dash:    dash,
	}
}

// Items returns the visible records, newest first.
func (d *Dropdown) Items() []domain.Notification {
	return d.policy.Filter(d.store.Snapshot())
}

// Unread counts visible unread records.
func (d *Dropdown) Unread() int {
	return d.store.Count(func(n domain.Notification) bool {
		return !n.Read && d.policy.Visible(n)
	})
}

// Open fetches the role's panel collections. Failures leave them empty.
func (d *Dropdown) Open(ctx context.Context) Panel {
	var p Panel
	if d.dash == nil {
		return d.setPanel(p)
	}

	switch {
	case d.session.Role.SeesDashboard():
		dash, err := d.dash.Dashboard(ctx, d.session.BranchID)
		if err != nil {
			log.Error().Err(err).Str("user", d.session.UserID).Msg("dashboard fetch failed")
			break
		}
		p.Alerts = dash.Alerts
		p.PendingApprovals = dash.PendingApprovals

	case d.session.Role == domain.RoleConsultant:
		bookings, err := d.dash.AwaitingDeposit(ctx)
		if err != nil {
			log.Error().Err(err).Str("user", d.session.UserID).Msg("awaiting-deposit fetch failed")
			break
		}
		p.AwaitingDeposit = bookings
	}
	return d.setPanel(p)
}

func (d *Dropdown) setPanel(p Panel) Panel {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.panel = p
	return p
}

// Panel returns the collections from the last Open.
func (d *Dropdown) Panel() Panel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.panel
}

// Badge composes the badge count for the role:
// drivers count unread visible records only, consultants add bookings
// awaiting deposit, dashboard roles add unread alerts and pending approvals.
func (d *Dropdown) Badge() int {
	count := d.Unread()
	p := d.Panel()

	switch {
	case d.session.Role == domain.RoleConsultant:
		count += len(p.AwaitingDeposit)
	case d.session.Role.SeesDashboard():
		count += p.unreadAlerts() + len(p.PendingApprovals)
	}
	return count
}
