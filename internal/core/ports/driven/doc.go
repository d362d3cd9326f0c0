// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services and the shadow reconciler depend on these interfaces, and
// infrastructure adapters implement them.
//
// # Required Interfaces
//
//   - RegistryClient: Session-authenticated RPC access to the registry
//   - RecordSource: Fetches records from the external content source
//
// # Optional Interfaces
//
//   - MetadataGenerator: Produces a metadata payload for a record; required
//     only when a metadata processor is configured
//   - SchemaValidator: Validates generated metadata; required only when a
//     metadata processor enables validation
//   - FileChecker: Verifies a remote file exists before a file shadow is
//     created; a nil checker skips the check
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, processor, or filter package
package driven
