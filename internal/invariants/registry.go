package invariants

import (
	"github.com/genledger/feesim/internal/fees"
)

// Invariant is a single quantified property over a processed transaction.
// Check returns nil when the property holds. Implementations must not
// depend on other invariants.
type Invariant interface {
	ID() int
	Name() string
	Group() Group
	Severity() Severity
	Check(st *fees.State) *Violation
}

type rule struct {
	id       int
	name     string
	group    Group
	severity Severity
	check    func(*rule, *fees.State) *Violation
}

func (r *rule) ID() int            { return r.id }
func (r *rule) Name() string       { return r.name }
func (r *rule) Group() Group       { return r.group }
func (r *rule) Severity() Severity { return r.severity }

func (r *rule) Check(st *fees.State) *Violation {
	return r.check(r, st)
}

// fail builds a violation for this rule.
func (r *rule) fail(message string, context map[string]int64) *Violation {
	return &Violation{
		ID:       r.id,
		Name:     r.name,
		Message:  message,
		Severity: r.severity,
		Context:  context,
	}
}

// Registry holds the full invariant set in bit order.
type Registry struct {
	rules []Invariant
}

// NewRegistry builds the registry of all protocol invariants.
func NewRegistry() *Registry {
	rules := make([]Invariant, len(definitions))
	for i := range definitions {
		rules[i] = &definitions[i]
	}
	return &Registry{rules: rules}
}

// All returns the registered invariants in bit order.
func (r *Registry) All() []Invariant {
	return r.rules
}

// CheckAll evaluates every invariant and collects the violations.
func (r *Registry) CheckAll(st *fees.State) []Violation {
	var out []Violation
	for _, inv := range r.rules {
		if v := inv.Check(st); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// CheckGroup evaluates only the invariants of one group.
func (r *Registry) CheckGroup(st *fees.State, g Group) []Violation {
	var out []Violation
	for _, inv := range r.rules {
		if inv.Group() != g {
			continue
		}
		if v := inv.Check(st); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// CheckCritical evaluates only the critical invariants.
func (r *Registry) CheckCritical(st *fees.State) []Violation {
	var out []Violation
	for _, inv := range r.rules {
		if inv.Severity() != SeverityCritical {
			continue
		}
		if v := inv.Check(st); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Bitfield evaluates every invariant and sets bit k when invariant k
// passes. This is the form persisted in path records.
func (r *Registry) Bitfield(st *fees.State) uint32 {
	var bits uint32
	for _, inv := range r.rules {
		if inv.Check(st) == nil {
			bits |= 1 << uint(inv.ID())
		}
	}
	return bits
}

// CheckAll runs the default registry over a processed transaction.
func CheckAll(st *fees.State) []Violation {
	return NewRegistry().CheckAll(st)
}
