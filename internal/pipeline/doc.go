// Package pipeline turns external records into shadow trees.
//
// A Runner holds the filters and processors configured for one harvester run.
// For each record it evaluates every applicable filter, then either builds a
// full shadow through the object processor and the remaining processors, or a
// skipped shadow when any filter rejects the record. Filters and processors
// are constructed by name through builder registries, so an unknown name in
// configuration fails at startup rather than mid-batch.
package pipeline
