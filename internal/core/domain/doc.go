// Package domain defines the core business entities for the harvester.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ExternalRecord: An opaque record from the external content source
//   - Extras: Per-record values exchanged between processors
//   - RegistryObject: An object in the remote registry, with its metadata,
//     files and accesspoint publish windows
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
