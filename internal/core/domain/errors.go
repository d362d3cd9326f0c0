package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrConfiguration indicates the harvester configuration is missing or
	// invalid. Configuration errors are fatal at startup, before any record
	// is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrSessionExpired indicates the registry rejected a call because the
	// session is no longer valid. The engine reauthenticates and retries the
	// current record when it sees this error.
	ErrSessionExpired = errors.New("session has expired")

	// ErrAmbiguousQuery indicates an object lookup matched more results than
	// the configured duplicate threshold. The query is too broad to resolve
	// safely; processing of the record fails.
	ErrAmbiguousQuery = errors.New("query matched too many objects")

	// ErrSchemaValidation indicates generated metadata did not validate
	// against its schema. Fatal for the record: silently dropping invalid
	// metadata corrupts downstream assumptions.
	ErrSchemaValidation = errors.New("metadata schema validation failed")

	// ErrCyclicFileParents indicates a file shadow's parent chain loops back
	// on itself. Cyclic parent chains are a caller error.
	ErrCyclicFileParents = errors.New("cyclic file parent chain")

	// ErrServiceFailure indicates the registry reported a service-level
	// failure for an otherwise successful transport call.
	ErrServiceFailure = errors.New("registry service failure")
)
