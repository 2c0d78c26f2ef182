package idle

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidConfig = "INVALID_IDLE_CONFIG"
	textCodeOutOfScope    = "IDLE_COORDINATOR_NOT_IN_SCOPE"
)

// ErrInvalidConfig is returned when timeout/warning durations violate the
// configuration invariant (0 < warning < timeout).
var ErrInvalidConfig = goerrors.New("invalid idle timeout configuration", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidConfig).
	WithCode(goerrors.CodeBadRequest)

// ErrNoCoordinator is returned when published state is requested outside an
// active coordinator scope. Failing loudly here beats silently returning a
// default state that would mask a wiring bug.
var ErrNoCoordinator = goerrors.New("idle coordinator not found in scope", goerrors.CategoryOperation).
	WithTextCode(textCodeOutOfScope).
	WithCode(goerrors.CodeInternal)

// ErrMonitorStarted is the error we return when starting an already running monitor
var ErrMonitorStarted = errors.New("activity monitor already started")

// ErrNilSignalSource is the error for a monitor constructed without a source
var ErrNilSignalSource = errors.New("signal source is nil")

// ErrNilLogout is the error for a coordinator constructed without a logout collaborator
var ErrNilLogout = errors.New("logout collaborator is nil")

// ErrNoSession is the error when the request carries no decodable session
var ErrNoSession = errors.New("unable to find session subject")
