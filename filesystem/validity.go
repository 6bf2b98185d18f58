package filesystem

import (
	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

// Problems returns every reason n is invalid, or nil when it is valid.
// A node must be bound, every required child must be a managed child of the
// declared type, and kinds implementing [nodetree.Checker] must pass their check.
func (fs *FileSystem) Problems(n nodetree.Node) error {
	if n.Dir() == "" {
		return errors.Wrapf(nodetree.ErrUnboundDirectory, "%s", n.NodeType())
	}

	var entries []nodetree.Entry
	if needsEntries(n) {
		var err error
		if entries, err = fs.Entries(n); err != nil {
			return err
		}
	}
	return problemsFrom(n, entries)
}

// Valid reports whether [FileSystem.Problems] finds nothing
func (fs *FileSystem) Valid(n nodetree.Node) bool {
	return fs.Problems(n) == nil
}

func needsEntries(n nodetree.Node) bool {
	req, ok := n.(nodetree.ChildRequirer)
	return ok && len(req.RequiredChildren()) > 0
}

// problemsFrom evaluates validity of a bound node against already listed entries
func problemsFrom(n nodetree.Node, entries []nodetree.Entry) error {
	var result *multierror.Error

	if req, ok := n.(nodetree.ChildRequirer); ok {
		required := req.RequiredChildren()
		byName := make(map[string]nodetree.Entry, len(entries))
		for _, e := range entries {
			byName[e.Name] = e
		}
		for _, slot := range util.SortedKeys(required) {
			tag := required[slot]
			e, ok := byName[slot]
			switch {
			case !ok:
				result = multierror.Append(result,
					errors.Wrapf(nodetree.ErrRequiredChild, "%q (%s) is missing", slot, tag))
			case e.Kind == nodetree.InvalidEntry:
				result = multierror.Append(result,
					errors.Wrapf(nodetree.ErrRequiredChild, "%q (%s) cannot be loaded: %v", slot, tag, e.Err))
			case e.Kind == nodetree.ForeignEntry:
				result = multierror.Append(result,
					errors.Wrapf(nodetree.ErrRequiredChild, "%q (%s) is not a node", slot, tag))
			case e.Node.NodeType() != tag:
				result = multierror.Append(result,
					errors.Wrapf(nodetree.ErrRequiredChild, "%q is a %s, want %s", slot, e.Node.NodeType(), tag))
			}
		}
	}

	if c, ok := n.(nodetree.Checker); ok {
		if err := c.Check(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s check", n.NodeType()))
		}
	}
	return result.ErrorOrNil()
}
