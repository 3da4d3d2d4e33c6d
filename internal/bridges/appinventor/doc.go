// Package appinventor dispatches pin commands from MIT App Inventor clients.
//
// Each inbound message is checked against the board identifier, decoded,
// and routed by action: REGISTER opens a pin, EVENT drives or reads one, and
// anything else is logged and dropped. Replies and input changes are
// published on the board's events topic.
//
// All dispatching happens on the goroutine running Bridge.Run, so the pin
// controller sees one command at a time in broker delivery order.
package appinventor
