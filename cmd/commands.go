package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/filesystem"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/brettbedarf/nodetree/watch"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var (
	invalidColor = color.New(color.FgRed)
	foreignColor = color.New(color.Faint)
	problemColor = color.New(color.FgYellow)
	nodeColor    = color.New(color.FgCyan)
)

func (a *app) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered node types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, tag := range a.reg.Types() {
				fmt.Fprintln(a.out, tag)
			}
		},
	}
}

func (a *app) initCmd() *cobra.Command {
	var (
		tag string
		ff  fieldFlags
	)
	cmd := &cobra.Command{
		Use:   "init <dir> --type <Type>",
		Short: "Create a root node in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := ff.fields()
			if err != nil {
				return err
			}
			tree := filesystem.NewTree(a.fs)
			found, err := tree.LoadRoot(args[0])
			if err != nil {
				return errors.Wrapf(err, "refusing to replace the descriptor at %s", args[0])
			}
			if found {
				return errors.Wrapf(nodetree.ErrRootExists, "at %s", args[0])
			}
			n, err := tree.CreateRoot(tag, args[0], fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s at %s\n", n.NodeType(), n.Dir())
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "type", "t", "", "Node type of the root")
	_ = cmd.MarkFlagRequired("type")
	ff.register(cmd)
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var ff fieldFlags
	cmd := &cobra.Command{
		Use:   "add <parent-dir> <Type> [slot]",
		Short: "Attach a new child node under parent-dir",
		Long:  "Attach a new child node. Without a slot the name is derived from the type and the node's text.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := ff.fields()
			if err != nil {
				return err
			}
			parent, err := a.loadNode(args[0])
			if err != nil {
				return err
			}
			child, err := a.reg.New(args[1], fields)
			if err != nil {
				return err
			}
			var slot string
			if len(args) == 3 {
				slot = args[2]
			}
			if err := a.fs.AddChild(parent, child, slot); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s at %s\n", child.NodeType(), child.Dir())
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <parent-dir> <slot>",
		Short: "Delete a child node and everything below it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := a.loadNode(args[0])
			if err != nil {
				return err
			}
			if err := a.fs.RemoveChild(parent, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", filepath.Join(parent.Dir(), args[1]))
			return nil
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <dir>",
		Short: "List the entries of a node directory by kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.loadNode(args[0])
			if err != nil {
				return err
			}
			entries, err := a.fs.Entries(n)
			if err != nil {
				return err
			}
			for _, e := range entries {
				a.printEntry(e)
			}
			return nil
		},
	}
}

func (a *app) printEntry(e nodetree.Entry) {
	switch e.Kind {
	case nodetree.ManagedEntry:
		fmt.Fprintf(a.out, "%-8s %s ", e.Kind, e.Name)
		_, _ = nodeColor.Fprintln(a.out, describe(e.Node))
	case nodetree.InvalidEntry:
		_, _ = invalidColor.Fprintf(a.out, "%-8s %s: %v\n", e.Kind, e.Name, e.Err)
	default:
		name := e.Name
		if e.IsDir {
			name += string(filepath.Separator)
		}
		_, _ = foreignColor.Fprintf(a.out, "%-8s %s\n", e.Kind, name)
	}
}

func (a *app) treeCmd() *cobra.Command {
	var showForeign bool
	cmd := &cobra.Command{
		Use:   "tree <dir>",
		Short: "Print the node tree under dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.loadNode(args[0])
			if err != nil {
				return err
			}
			snap, err := a.fs.Snapshot(n)
			if err != nil {
				return err
			}
			a.printSnapshot(snap, 0, showForeign)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showForeign, "all", "a", false, "Also list foreign files and directories")
	return cmd
}

func (a *app) printSnapshot(s *filesystem.Snapshot, depth int, showForeign bool) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(a.out, "%s%s ", indent, s.Name)
	_, _ = nodeColor.Fprint(a.out, describe(s.Node))
	if !s.Valid() {
		_, _ = problemColor.Fprint(a.out, " !")
	}
	fmt.Fprintln(a.out)

	for _, c := range s.Children {
		a.printSnapshot(c, depth+1, showForeign)
	}
	for _, inv := range s.Invalid {
		_, _ = invalidColor.Fprintf(a.out, "%s  %s (invalid: %v)\n", indent, inv.Name, inv.Err)
	}
	if showForeign {
		for _, f := range s.Foreign {
			name := f.Name
			if f.IsDir {
				name += string(filepath.Separator)
			}
			_, _ = foreignColor.Fprintf(a.out, "%s  %s\n", indent, name)
		}
	}
}

// describe renders "Type" or "Type: text" for nodes with a String form
func describe(n nodetree.Node) string {
	if s, ok := n.(fmt.Stringer); ok {
		if text := s.String(); text != "" && text != n.NodeType() {
			return n.NodeType() + ": " + text
		}
	}
	return n.NodeType()
}

func (a *app) validateCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Report why the node in dir is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.loadNode(args[0])
			if err != nil {
				return err
			}
			if !recursive {
				if err := a.fs.Problems(n); err != nil {
					return a.reportProblems(n.Dir(), err)
				}
				fmt.Fprintf(a.out, "%s is valid\n", n.Dir())
				return nil
			}

			snap, err := a.fs.Snapshot(n)
			if err != nil {
				return err
			}
			var result *multierror.Error
			for s := range snap.All() {
				if !s.Valid() {
					result = multierror.Append(result, a.reportProblems(s.Dir, s.Problems))
				}
				for _, inv := range s.Invalid {
					result = multierror.Append(result, errors.Wrapf(inv.Err, "%s", filepath.Join(s.Dir, inv.Name)))
				}
			}
			if err := result.ErrorOrNil(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d node(s) under %s are valid\n", snap.Count(), n.Dir())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Validate every node below dir as well")
	return cmd
}

// reportProblems prints each problem and returns an error naming dir
func (a *app) reportProblems(dir string, problems error) error {
	var merr *multierror.Error
	list := []error{problems}
	if errors.As(problems, &merr) {
		list = merr.Errors
	}
	for _, p := range list {
		_, _ = problemColor.Fprintf(a.out, "%s: %v\n", dir, p)
	}
	return errors.Newf("%s is invalid", dir)
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Print a summary of the tree every time it changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := util.GetLogger("main")

			w, err := watch.New(a.fs, args[0], watch.DefaultDelay)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("dir", args[0]).Msg("Watching for changes")
			return w.Run(ctx, func(snap *filesystem.Snapshot, err error) {
				if err != nil {
					_, _ = invalidColor.Fprintf(a.out, "error: %v\n", err)
					return
				}
				invalid := 0
				for s := range snap.All() {
					if !s.Valid() {
						invalid++
					}
					invalid += len(s.Invalid)
				}
				fmt.Fprintf(a.out, "%s: %d node(s), %d problem(s)\n", snap.Dir, snap.Count(), invalid)
			})
		},
	}
}
