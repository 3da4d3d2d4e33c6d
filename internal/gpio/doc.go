// Package gpio drives the board's pins on behalf of remote App Inventor
// clients.
//
// A Controller keeps a registry of pins opened by REGISTER commands,
// applies EVENT commands to them and closes them all on shutdown. Pin access
// goes through the Driver interface; two implementations are provided:
//
//   - "periph": periph.io host drivers, pins looked up by name (GPIO34, GPIO_34)
//   - "rpio": go-rpio memory-mapped access, pins addressed by BCM number
//
// Output pins are written with HIGH/LOW events. Input pins answer an EVENT
// with their current level and, when edge watching is enabled, report every
// change on their own.
package gpio
