package nodetree

import "github.com/cockroachdb/errors"

// Error kinds. Returned errors wrap or are marked with one of these so callers
// can classify them with errors.Is.
var (
	// ErrUnknownNodeType means a descriptor names a tag with no registered constructor
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrConstruction means a registered constructor rejected the decoded fields
	ErrConstruction = errors.New("node construction failed")
	// ErrFieldEncoding means a field value has no descriptor representation
	ErrFieldEncoding = errors.New("field cannot be encoded")
	// ErrCorruptDescriptor means the descriptor bytes are not a readable record
	ErrCorruptDescriptor = errors.New("corrupt descriptor")

	ErrUnboundDirectory = errors.New("node has no directory bound")
	ErrNoDirectoryBound = errors.New("parent node has no directory bound")
	ErrChildNotFound    = errors.New("child not found")
	ErrSlotExists       = errors.New("slot already exists")
	ErrInvalidSlotName  = errors.New("invalid slot name")
	ErrRequiredChild    = errors.New("required child missing or mismatched")

	ErrRootExists = errors.New("root already exists")
	ErrNoCursor   = errors.New("no cursor set")
)
