package present_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/present"
	"vn.io.arda/notifeed/internal/store"
	"vn.io.arda/notifeed/internal/tracker"
)

type fakeTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
}

func (ft *fakeTimer) Stop() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	was := !ft.stopped
	ft.stopped = true
	return was
}

func (ft *fakeTimer) fire() {
	ft.mu.Lock()
	stopped := ft.stopped
	ft.stopped = true
	ft.mu.Unlock()
	if !stopped {
		ft.f()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) present.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft := &fakeTimer{f: f}
	c.all = append(c.all, ft)
	return ft
}

func (c *fakeClock) fireAll() {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.all...)
	c.mu.Unlock()
	for _, ft := range timers {
		ft.fire()
	}
}

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func live(id string, sec int, cat domain.Category, scope domain.Scope) domain.Notification {
	return domain.Notification{
		ID: id, Title: id, Message: "message " + id, Category: cat,
		Timestamp: t0.Add(time.Duration(sec) * time.Second),
		Origin:    domain.OriginLive, Scope: scope,
	}
}

func newToasts(s *store.Store, role domain.Role) (*present.Toasts, *fakeClock) {
	clock := &fakeClock{}
	return present.NewToasts(s, role, tracker.New(s, nil), present.ToastOptions{
		TTL:       5 * time.Second,
		AfterFunc: clock.AfterFunc,
	}), clock
}

func toastIDs(ts []present.Toast) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestToasts_PersistedNeverToasted(t *testing.T) {
	s := store.New()
	s.Insert(domain.Notification{
		ID: "db-1", Message: "history", Category: domain.CategoryTripAssigned,
		Timestamp: t0, Origin: domain.OriginPersisted, Scope: domain.ScopeUser,
	})
	toasts, _ := newToasts(s, domain.RoleDriver)
	dropdown := present.NewDropdown(s, domain.Session{UserID: "d", Role: domain.RoleDriver}, nil)

	toasts.Sync()

	assert.Empty(t, toasts.Active())
	require.Len(t, dropdown.Items(), 1)
	assert.Equal(t, "db-1", dropdown.Items()[0].ID)
}

func TestToasts_CappedAndPromoted(t *testing.T) {
	s := store.New()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		s.Insert(live(id, i, domain.CategoryBookingUpdate, domain.ScopeBroadcast))
	}
	toasts, _ := newToasts(s, domain.RoleCoordinator)

	toasts.Sync()
	assert.Equal(t, []string{"e", "d", "c"}, toastIDs(toasts.Active()))

	require.True(t, toasts.Dismiss("d"))
	assert.Equal(t, []string{"e", "c", "b"}, toastIDs(toasts.Active()))

	n, _ := s.Get("d")
	assert.True(t, n.Read, "dismissing a toast marks the record read")
	assert.False(t, toasts.Dismiss("d"))
}

func TestToasts_AutoDismissMarksReadAndDoesNotReturn(t *testing.T) {
	s := store.New()
	s.Insert(live("a", 0, domain.CategoryTripAssigned, domain.ScopeUser))
	toasts, clock := newToasts(s, domain.RoleDriver)

	toasts.Sync()
	require.Len(t, toasts.Active(), 1)
	assert.Equal(t, 5*time.Second, toasts.Active()[0].ExpiresAt.Sub(toasts.Active()[0].ShownAt))

	clock.fireAll()
	assert.Empty(t, toasts.Active())

	n, _ := s.Get("a")
	assert.True(t, n.Read)

	toasts.Sync()
	assert.Empty(t, toasts.Active())
}

func TestToasts_ReadElsewhereClosesToast(t *testing.T) {
	s := store.New()
	s.Insert(live("a", 0, domain.CategorySuccess, domain.ScopeUser))
	toasts, _ := newToasts(s, domain.RoleAdmin)

	toasts.Sync()
	require.Len(t, toasts.Active(), 1)

	s.MarkRead("a")
	toasts.Sync()
	assert.Empty(t, toasts.Active())
}

func TestToasts_LocalIsEligible(t *testing.T) {
	s := store.New()
	n := live("local-1", 0, domain.CategoryInfo, domain.ScopeUser)
	n.Origin = domain.OriginLocal
	s.Insert(n)
	toasts, _ := newToasts(s, domain.RoleManager)

	toasts.Sync()
	assert.Equal(t, []string{"local-1"}, toastIDs(toasts.Active()))
}

func TestRoleIsolation_DriverSeesNoDispatchBroadcast(t *testing.T) {
	s := store.New()
	s.Insert(live("dispatch", 0, domain.CategoryDispatchUpdate, domain.ScopeBroadcast))
	driver := domain.Session{UserID: "d", Role: domain.RoleDriver}
	toasts, _ := newToasts(s, driver.Role)
	dropdown := present.NewDropdown(s, driver, nil)

	toasts.Sync()

	assert.Empty(t, toasts.Active())
	assert.Empty(t, dropdown.Items())
	assert.Equal(t, 0, dropdown.Badge())
}

func TestToasts_OnChange(t *testing.T) {
	s := store.New()
	s.Insert(live("a", 0, domain.CategorySuccess, domain.ScopeUser))

	var seen [][]present.Toast
	toasts := present.NewToasts(s, domain.RoleAdmin, tracker.New(s, nil), present.ToastOptions{
		AfterFunc: (&fakeClock{}).AfterFunc,
		OnChange:  func(ts []present.Toast) { seen = append(seen, ts) },
	})

	toasts.Sync()
	toasts.Sync()
	toasts.Dismiss("a")

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Empty(t, seen[1])
}

type fakeDashboard struct {
	dash     *domain.Dashboard
	bookings []domain.Booking
	err      error
	branch   string
}

func (f *fakeDashboard) Dashboard(_ context.Context, branchID string) (*domain.Dashboard, error) {
	f.branch = branchID
	return f.dash, f.err
}

func (f *fakeDashboard) AwaitingDeposit(context.Context) ([]domain.Booking, error) {
	return f.bookings, f.err
}

func TestBadge_Composition(t *testing.T) {
	s := store.New()
	s.Insert(live("trip", 0, domain.CategoryTripAssigned, domain.ScopeUser))
	s.Insert(live("booking", 1, domain.CategoryBookingUpdate, domain.ScopeBroadcast))
	s.Insert(live("deposit", 2, domain.CategoryDepositPending, domain.ScopeUser))

	dash := &fakeDashboard{
		dash: &domain.Dashboard{
			Alerts:           []domain.Alert{{ID: "1"}, {ID: "2", IsRead: true}},
			PendingApprovals: []domain.PendingApproval{{ID: "p1"}, {ID: "p2"}},
		},
		bookings: []domain.Booking{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}},
	}
	ctx := context.Background()

	driver := present.NewDropdown(s, domain.Session{UserID: "d", Role: domain.RoleDriver}, dash)
	driver.Open(ctx)
	assert.Equal(t, 1, driver.Badge())

	consultant := present.NewDropdown(s, domain.Session{UserID: "c", Role: domain.RoleConsultant}, dash)
	assert.Equal(t, 2, consultant.Badge())
	panel := consultant.Open(ctx)
	assert.Len(t, panel.AwaitingDeposit, 3)
	assert.Equal(t, 5, consultant.Badge())

	coordinator := present.NewDropdown(s, domain.Session{UserID: "k", Role: domain.RoleCoordinator, BranchID: "hn"}, dash)
	coordinator.Open(ctx)
	assert.Equal(t, "hn", dash.branch)
	assert.Equal(t, 1+1+2, coordinator.Badge())
}

func TestDropdown_OpenFailureDegradesToEmpty(t *testing.T) {
	s := store.New()
	dash := &fakeDashboard{err: errors.New("timeout")}
	d := present.NewDropdown(s, domain.Session{UserID: "m", Role: domain.RoleManager}, dash)

	panel := d.Open(context.Background())
	assert.Empty(t, panel.Alerts)
	assert.Empty(t, panel.PendingApprovals)
	assert.Equal(t, 0, d.Badge())
}

func TestToasts_RemovedRecordIsForgotten(t *testing.T) {
	s := store.New()
	toasts, _ := newToasts(s, domain.RoleCoordinator)

	require.True(t, s.Insert(live("a", 1, domain.CategoryBookingUpdate, domain.ScopeBroadcast)))
	toasts.Sync()
	require.True(t, toasts.Dismiss("a"))
	_, ok := s.Remove("a")
	require.True(t, ok)
	toasts.Sync()
	assert.Empty(t, toasts.Active())

	require.True(t, s.Insert(live("a", 2, domain.CategoryBookingUpdate, domain.ScopeBroadcast)))
	toasts.Sync()
	assert.Equal(t, []string{"a"}, toastIDs(toasts.Active()))
}
