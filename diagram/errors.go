package diagram

import "errors"

var (
	// ErrMetadataVersion is returned when the node catalog is missing or
	// older than RequiredVersion.
	ErrMetadataVersion = errors.New("incompatible metadata version")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrDuplicateID     = errors.New("duplicate component id")
	ErrDanglingLink    = errors.New("link target not found")
	ErrInvalidDocument = errors.New("invalid scenario document")
)
