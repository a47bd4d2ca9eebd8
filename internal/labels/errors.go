package labels

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLabel is matched by errors returned from ResolveID.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrUnknownIdentifier is matched by errors returned from ResolveLabel.
	ErrUnknownIdentifier = errors.New("unknown identifier")
	// ErrRegistryIntegrity signals a label table that is not a bijection.
	ErrRegistryIntegrity = errors.New("registry integrity violation")
)

// UnknownLabelError reports a display label that is not in the registry.
type UnknownLabelError struct {
	Registry string
	Label    string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: unknown label %q", e.Registry, e.Label)
}

func (e *UnknownLabelError) Unwrap() error { return ErrUnknownLabel }

// UnknownIdentifierError reports an external identifier that is not in the registry.
type UnknownIdentifierError struct {
	Registry string
	ID       string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("%s: unknown identifier %q", e.Registry, e.ID)
}

func (e *UnknownIdentifierError) Unwrap() error { return ErrUnknownIdentifier }

// IntegrityError describes why a registry could not be built.
type IntegrityError struct {
	Registry string
	Index    int
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: entry %d: %s", e.Registry, e.Index, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrRegistryIntegrity }
