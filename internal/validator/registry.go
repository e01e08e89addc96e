package validator

import (
	"errors"
	"fmt"
	"slices"

	"gstaudit/internal/domain"
	"gstaudit/internal/validator/invoice"
)

// Registry maps every check ID of the closed battery to exactly one check.
type Registry struct {
	checks     map[invoice.CheckID]*invoice.Check
	byCategory map[domain.Category][]*invoice.Check
}

// NewRegistry indexes checks. It fails when an ID of the battery has no
// check, when an ID is registered twice, or when a check carries an ID
// outside the battery.
func NewRegistry(checks []*invoice.Check) (*Registry, error) {
	known := make(map[invoice.CheckID]bool)
	for _, id := range invoice.CheckIDs() {
		known[id] = true
	}

	r := &Registry{
		checks:     make(map[invoice.CheckID]*invoice.Check, len(checks)),
		byCategory: make(map[domain.Category][]*invoice.Check),
	}
	var errs []error
	for _, c := range checks {
		switch {
		case !known[c.ID]:
			errs = append(errs, fmt.Errorf("check %q is not part of the battery", c.ID))
		case r.checks[c.ID] != nil:
			errs = append(errs, fmt.Errorf("check %s registered twice", c.ID))
		default:
			r.checks[c.ID] = c
			r.byCategory[c.Category()] = append(r.byCategory[c.Category()], c)
		}
	}
	for _, id := range invoice.CheckIDs() {
		if r.checks[id] == nil {
			errs = append(errs, fmt.Errorf("no evaluator for check %s", id))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building check registry: %w", errors.Join(errs...))
	}

	for _, list := range r.byCategory {
		slices.SortFunc(list, func(a, b *invoice.Check) int {
			switch {
			case a.ID.Less(b.ID):
				return -1
			case b.ID.Less(a.ID):
				return 1
			}
			return 0
		})
	}
	return r, nil
}

// DefaultRegistry registers the built-in battery.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(invoice.AllChecks())
}

// Get returns the check for id.
func (r *Registry) Get(id invoice.CheckID) (*invoice.Check, bool) {
	c, ok := r.checks[id]
	return c, ok
}

// Category returns the checks of cat in ID order.
func (r *Registry) Category(cat domain.Category) []*invoice.Check {
	return r.byCategory[cat]
}

// All returns every check in ID order.
func (r *Registry) All() []*invoice.Check {
	out := make([]*invoice.Check, 0, len(r.checks))
	for _, cat := range domain.AllCategories {
		out = append(out, r.byCategory[cat]...)
	}
	return out
}

// Len is the number of registered checks.
func (r *Registry) Len() int { return len(r.checks) }
