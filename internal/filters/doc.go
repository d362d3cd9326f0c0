// Package filters provides the built-in record filters.
//
// Filters are compiled implementations selected by name in configuration.
// There is deliberately no way to embed filter code in the config file; a
// harvester that needs a new exclusion rule gets a new named filter here.
package filters
