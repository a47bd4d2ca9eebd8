package period

import (
	"fmt"

	"github.com/irfndi/foresight-go/internal/labels"
)

// DefaultVocabulary maps calendar units (label side) to the fetch-facing
// granularity names of the data API (identifier side).
var DefaultVocabulary = []labels.Entry{
	{Label: string(Days), ID: "daily"},
	{Label: string(Weeks), ID: "weekly"},
	{Label: string(Months), ID: "monthly"},
	{Label: string(Quarters), ID: "quarterly"},
	{Label: string(Years), ID: "annual"},
}

// Adapter resolves fetch-facing granularities to calendar units.
type Adapter struct {
	reg   *labels.Registry
	units map[string]Unit
}

// NewAdapter wraps a registry whose labels are calendar units and whose
// identifiers are fetch-facing granularities. A label that is not a known
// calendar unit is an integrity error.
func NewAdapter(reg *labels.Registry) (*Adapter, error) {
	units := make(map[string]Unit, reg.Len())
	for i, e := range reg.Entries() {
		u, err := ParseUnit(e.Label)
		if err != nil {
			return nil, &labels.IntegrityError{Registry: reg.Name(), Index: i, Reason: err.Error()}
		}
		units[e.ID] = u
	}
	return &Adapter{reg: reg, units: units}, nil
}

// NewDefaultAdapter builds an adapter over DefaultVocabulary.
func NewDefaultAdapter() *Adapter {
	a, err := NewAdapter(labels.MustNew("period_units", DefaultVocabulary))
	if err != nil {
		panic(err)
	}
	return a
}

// UnitFor returns the calendar unit for a fetch-facing granularity.
func (a *Adapter) UnitFor(fetchID string) (Unit, error) {
	label, err := a.reg.ResolveLabel(fetchID)
	if err != nil {
		return "", err
	}
	return Unit(label), nil
}

// Validate checks that every fetch-facing granularity offered elsewhere (for
// example in the UI period selector) has exactly one calendar unit here.
func (a *Adapter) Validate(fetchIDs []string) error {
	for i, id := range fetchIDs {
		if _, ok := a.units[id]; !ok {
			return &labels.IntegrityError{
				Registry: a.reg.Name(),
				Index:    i,
				Reason:   fmt.Sprintf("granularity %q has no calendar unit", id),
			}
		}
	}
	return nil
}
