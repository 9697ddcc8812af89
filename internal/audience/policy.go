// Package audience decides which feed entries a role may see.
//
// Each role has an ordered list of rules. A rule looks at the structured
// category first or, when a producer omitted it, at the message text. The
// first rule with a verdict wins; when none has one, records delivered on the
// user's own channel are visible and broadcast records are not.
package audience

import (
	"regexp"

	"vn.io.arda/notifeed/internal/domain"
)

// Verdict is the outcome of a single rule.
type Verdict int

const (
	Undecided Verdict = iota
	Show
	Hide
)

// Rule is a named predicate over a notification.
type Rule struct {
	Name  string
	Match func(n domain.Notification) Verdict
}

// Policy is the ordered rule list for one role.
type Policy struct {
	Role  domain.Role
	Rules []Rule
}

const defaultRule = "default:user-scope"

// Visible reports whether n is shown to the policy's role.
func (p Policy) Visible(n domain.Notification) bool {
	_, ok := p.decide(n)
	return ok
}

// Explain returns the name of the rule that decided n.
func (p Policy) Explain(n domain.Notification) string {
	name, _ := p.decide(n)
	return name
}

func (p Policy) decide(n domain.Notification) (string, bool) {
	for _, r := range p.Rules {
		switch r.Match(n) {
		case Show:
			return r.Name, true
		case Hide:
			return r.Name, false
		}
	}
	return defaultRule, n.Scope == domain.ScopeUser
}

// Filter returns the visible subset of ns, preserving order.
func (p Policy) Filter(ns []domain.Notification) []domain.Notification {
	out := make([]domain.Notification, 0, len(ns))
	for _, n := range ns {
		if p.Visible(n) {
			out = append(out, n)
		}
	}
	return out
}

var (
	generalCategories = categorySet(
		domain.CategorySuccess, domain.CategoryError, domain.CategoryWarning, domain.CategoryInfo,
	)
	driverCategories = categorySet(
		domain.CategoryTripAssigned, domain.CategoryExpenseStatus, domain.CategoryLeaveStatus,
		domain.CategoryPaymentUpdate,
		domain.CategorySuccess, domain.CategoryError, domain.CategoryWarning, domain.CategoryInfo,
	)
	driverOnlyCategories = categorySet(
		domain.CategoryTripAssigned, domain.CategoryExpenseStatus, domain.CategoryLeaveStatus,
	)
	staffCategories = categorySet(
		domain.CategorySuccess, domain.CategoryError, domain.CategoryWarning, domain.CategoryInfo,
		domain.CategoryBookingUpdate, domain.CategoryPaymentUpdate, domain.CategoryDispatchUpdate,
		domain.CategoryAlert, domain.CategoryApproval,
	)

	staffKeywords       = regexp.MustCompile(`(?i)\b(dispatch\w*|approvals?|pending approval|bookings?|alerts?|vehicle|fleet)\b`)
	driverKeywords      = regexp.MustCompile(`(?i)\b(trips?|assigned|expenses?|leave|salary|payments?)\b`)
	addressedToDriverRx = regexp.MustCompile(`(?i)(your trip|assigned to you|your expense|your leave|your salary)`)
)

// PolicyFor returns the rule list for role.
func PolicyFor(role domain.Role) Policy {
	switch role {
	case domain.RoleDriver:
		return Policy{Role: role, Rules: driverRules()}
	case domain.RoleCoordinator, domain.RoleManager, domain.RoleAdmin, domain.RoleConsultant:
		return Policy{Role: role, Rules: staffRules(role)}
	default:
		return Policy{Role: role, Rules: unknownRules()}
	}
}

func driverRules() []Rule {
	return []Rule{
		{Name: "driver:no-broadcast", Match: func(n domain.Notification) Verdict {
			if n.Scope == domain.ScopeBroadcast {
				return Hide
			}
			return Undecided
		}},
		{Name: "driver:category", Match: func(n domain.Notification) Verdict {
			if n.Category == "" {
				return Undecided
			}
			if driverCategories[n.Category] {
				return Show
			}
			return Hide
		}},
		{Name: "driver:staff-keywords", Match: keyword(staffKeywords, Hide)},
		{Name: "driver:keywords", Match: keyword(driverKeywords, Show)},
	}
}

func staffRules(role domain.Role) []Rule {
	return []Rule{
		{Name: "staff:driver-only-category", Match: func(n domain.Notification) Verdict {
			if driverOnlyCategories[n.Category] {
				return Hide
			}
			return Undecided
		}},
		{Name: "staff:deposit", Match: func(n domain.Notification) Verdict {
			if n.Category != domain.CategoryDepositPending {
				return Undecided
			}
			if role == domain.RoleConsultant {
				return Show
			}
			return Hide
		}},
		{Name: "staff:category", Match: func(n domain.Notification) Verdict {
			if n.Category == "" {
				return Undecided
			}
			if staffCategories[n.Category] {
				return Show
			}
			return Hide
		}},
		{Name: "staff:driver-keywords", Match: keyword(addressedToDriverRx, Hide)},
		{Name: "staff:keywords", Match: keyword(staffKeywords, Show)},
	}
}

func unknownRules() []Rule {
	return []Rule{
		{Name: "unknown:category", Match: func(n domain.Notification) Verdict {
			if n.Category == "" {
				return Undecided
			}
			if generalCategories[n.Category] {
				return Show
			}
			return Hide
		}},
	}
}

// keyword only applies to records without a structured category.
func keyword(rx *regexp.Regexp, v Verdict) func(domain.Notification) Verdict {
	return func(n domain.Notification) Verdict {
		if n.Category != "" {
			return Undecided
		}
		if rx.MatchString(n.Message) || rx.MatchString(n.Title) {
			return v
		}
		return Undecided
	}
}

func categorySet(cs ...domain.Category) map[domain.Category]bool {
	m := make(map[domain.Category]bool, len(cs))
	for _, c := range cs {
		m[c] = true
	}
	return m
}
