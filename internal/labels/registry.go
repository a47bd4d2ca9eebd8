// Package labels maps human-readable display labels to the identifiers an
// external vocabulary expects, and back.
package labels

import "fmt"

// Entry pairs a display label with its external identifier.
type Entry struct {
	Label string `json:"label" mapstructure:"label"`
	ID    string `json:"id" mapstructure:"id"`
}

// Registry is an immutable, ordered bijection between labels and identifiers.
// It is built once at startup and is safe for concurrent reads.
type Registry struct {
	name    string
	entries []Entry
	byLabel map[string]string
	byID    map[string]string
}

// New builds a registry from entries, keeping their order.
//
// Parameters:
//
//	name: Name used in error messages (e.g. "sources").
//	entries: Label/identifier pairs.
//
// Returns:
//
//	*Registry: The registry.
//	error: *IntegrityError if a label or identifier is empty or repeated.
func New(name string, entries []Entry) (*Registry, error) {
	r := &Registry{
		name:    name,
		entries: make([]Entry, 0, len(entries)),
		byLabel: make(map[string]string, len(entries)),
		byID:    make(map[string]string, len(entries)),
	}

	for i, e := range entries {
		if e.Label == "" {
			return nil, &IntegrityError{Registry: name, Index: i, Reason: "empty label"}
		}
		if e.ID == "" {
			return nil, &IntegrityError{Registry: name, Index: i, Reason: fmt.Sprintf("empty identifier for label %q", e.Label)}
		}
		if prev, ok := r.byLabel[e.Label]; ok {
			return nil, &IntegrityError{Registry: name, Index: i, Reason: fmt.Sprintf("label %q already maps to %q", e.Label, prev)}
		}
		if prev, ok := r.byID[e.ID]; ok {
			return nil, &IntegrityError{Registry: name, Index: i, Reason: fmt.Sprintf("identifier %q already mapped from %q", e.ID, prev)}
		}
		r.byLabel[e.Label] = e.ID
		r.byID[e.ID] = e.Label
		r.entries = append(r.entries, e)
	}

	return r, nil
}

// MustNew is like New but panics on an integrity error. Intended for
// package-level tables known at compile time.
func MustNew(name string, entries []Entry) *Registry {
	r, err := New(name, entries)
	if err != nil {
		panic(err)
	}
	return r
}

// ResolveID returns the external identifier for a display label.
func (r *Registry) ResolveID(label string) (string, error) {
	id, ok := r.byLabel[label]
	if !ok {
		return "", &UnknownLabelError{Registry: r.name, Label: label}
	}
	return id, nil
}

// ResolveLabel returns the display label for an external identifier.
func (r *Registry) ResolveLabel(id string) (string, error) {
	label, ok := r.byID[id]
	if !ok {
		return "", &UnknownIdentifierError{Registry: r.name, ID: id}
	}
	return label, nil
}

// HasID reports whether id is known.
func (r *Registry) HasID(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in construction order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Labels returns the display labels in construction order.
func (r *Registry) Labels() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Label
	}
	return out
}

// IDs returns the identifiers in construction order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.ID
	}
	return out
}
