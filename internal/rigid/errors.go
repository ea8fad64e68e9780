package rigid

import (
	"errors"
	"fmt"
)

// Domain errors for system setup and stepping.
var (
	// ErrConfiguration marks every setup failure reported by Initialize.
	ErrConfiguration = errors.New("rigid: invalid configuration")

	// ErrUnknownBody indicates a reference to a body that is not in the system.
	ErrUnknownBody = errors.New("rigid: reference to unregistered body")

	// ErrUnknownConstraint indicates a reference to a constraint that is not in the system.
	ErrUnknownConstraint = errors.New("rigid: reference to unregistered constraint")

	// ErrNonPositiveMass indicates a body mass that is zero, negative or not finite.
	ErrNonPositiveMass = errors.New("rigid: mass must be positive and finite")

	// ErrNonPositiveInertia indicates a body inertia that is zero, negative or not finite.
	ErrNonPositiveInertia = errors.New("rigid: inertia must be positive and finite")

	// ErrDegenerateConstraint indicates constraint geometry the solver cannot use.
	ErrDegenerateConstraint = errors.New("rigid: degenerate constraint geometry")

	// ErrInvalidParameter indicates a generator parameter outside its valid range.
	ErrInvalidParameter = errors.New("rigid: parameter out of valid bounds")

	ErrNotInitialized     = errors.New("rigid: system not initialized")
	ErrAlreadyInitialized = errors.New("rigid: system already initialized")
	ErrInvalidTimestep    = errors.New("rigid: timestep must be positive and finite")
)

// EntityKind names the arena an offending entity lives in.
type EntityKind string

const (
	KindBody       EntityKind = "body"
	KindConstraint EntityKind = "constraint"
	KindGenerator  EntityKind = "generator"
)

// ConfigurationError wraps a setup failure with the entity it was found on.
type ConfigurationError struct {
	Kind  EntityKind
	Index int
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Kind, e.Index, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports every ConfigurationError as ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
