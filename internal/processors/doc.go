// Package processors provides the built-in shadow-building processors.
//
// The object processor roots the shadow tree: it renders the resolution
// queries and applies the object type, folder and publish settings from
// configuration. The metadata processor generates and validates one schema's
// XML payload per record. The file processor maps file URLs from record
// fields onto configured destinations and emits file shadows, optionally
// verifying each file exists first.
package processors
