// Package identity owns the board identifier: an opaque token generated once,
// persisted, and used as the board's inbound MQTT topic.
//
// The identifier is what a remote App Inventor client types in to address a
// single board on a shared public broker, so it must survive restarts and
// never be regenerated while storage holds a value.
package identity
