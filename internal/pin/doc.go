// Package pin defines the pin command exchanged with App Inventor clients and
// its JSON wire form.
//
// A command on the wire looks like:
//
//	{"mDirection":"OUT","mName":"GPIO_34","mProperty":"PIN_STATE","mValue":"LOW","mAction":"EVENT"}
//
// The field names come from the App Inventor extension and cannot change.
package pin
