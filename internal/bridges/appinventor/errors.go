package appinventor

import "errors"

var (
	// ErrUnsupportedAction marks a decoded command whose action is neither
	// REGISTER nor EVENT. It is logged, never returned to the sender.
	ErrUnsupportedAction = errors.New("appinventor: message not supported")

	// ErrMissingDependency is returned by NewBridge when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("appinventor: missing dependency")
)
