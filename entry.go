package nodetree

// EntryKind classifies an immediate entry of a node's directory
type EntryKind int

const (
	// ManagedEntry is a sub-directory holding a descriptor that loads
	ManagedEntry EntryKind = iota
	// ForeignEntry is any file, or a sub-directory without a descriptor
	ForeignEntry
	// InvalidEntry is a sub-directory whose descriptor exists but fails to load
	InvalidEntry
)

func (k EntryKind) String() string {
	switch k {
	case ManagedEntry:
		return "managed"
	case ForeignEntry:
		return "foreign"
	case InvalidEntry:
		return "invalid"
	default:
		return "unknown"
	}
}

// Entry is one classified directory entry. Node is set only for managed
// entries and Err only for invalid ones.
type Entry struct {
	Name  string
	Kind  EntryKind
	IsDir bool
	Node  Node
	Err   error
}

// Foreign is filesystem content observed but not owned by the tree
type Foreign struct {
	Name  string
	IsDir bool
}

// Invalid is a sub-directory that claims to be a node but cannot be loaded
type Invalid struct {
	Name string
	Err  error
}
