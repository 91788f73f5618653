package database

import "errors"

var (
	// ErrPlatformUnsupported is returned when the embedded database backend
	// cannot run in the current execution environment.
	ErrPlatformUnsupported = errors.New("embedded database is not supported on this platform")

	// ErrInitializationFailed is returned when the connection or schema could
	// not be set up. The cause is wrapped and logged.
	ErrInitializationFailed = errors.New("failed to initialize the trade database, please restart the application")

	// ErrConnectionClosed is returned by a registry lookup for a name that is not open.
	ErrConnectionClosed = errors.New("no open connection under that name")
)
