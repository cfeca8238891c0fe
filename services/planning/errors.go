package planning

import "github.com/pkg/errors"

var (
	// ErrInitialization is returned by Init when a required collaborator is unavailable.
	ErrInitialization = errors.New("planning initialization failed")
	// ErrAlreadyRunning is returned by Start when the strategy is already being scheduled.
	ErrAlreadyRunning = errors.New("planning strategy already running")
	// ErrIllegalTransition is returned when a lifecycle method is called in the wrong state.
	ErrIllegalTransition = errors.New("illegal lifecycle transition")
	// ErrOptimizerFailure marks a primary planning call that failed, timed out or returned an
	// empty trajectory. It never escapes RunOnce.
	ErrOptimizerFailure = errors.New("trajectory optimizer failed")
)

// NewMissingCollaboratorError reports a collaborator that was not supplied.
func NewMissingCollaboratorError(name string) error {
	return errors.Wrapf(ErrInitialization, "missing required collaborator %q", name)
}
