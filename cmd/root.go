package main

import (
	"io"
	"os"

	"github.com/brettbedarf/nodetree"
	"github.com/brettbedarf/nodetree/config"
	"github.com/brettbedarf/nodetree/descriptor"
	"github.com/brettbedarf/nodetree/filesystem"
	"github.com/brettbedarf/nodetree/internal/util"
	"github.com/brettbedarf/nodetree/nodes"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once flags are parsed
type app struct {
	out        io.Writer
	verbose    int
	configPath string

	cfg *config.Config
	reg *descriptor.Registry
	fs  *filesystem.FileSystem
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "nodetree",
		Short:         "Manage node trees stored as directories of descriptor files",
		SilenceErrors: true, // main prints the error
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags().Changed("verbose"))
		},
	}
	root.SetOut(out)
	root.PersistentFlags().IntVarP(&a.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity between 1 (error) and 5 (trace)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Config file (.yaml or .json); defaults to the user data dir config if present")

	root.AddCommand(
		a.typesCmd(),
		a.initCmd(),
		a.addCmd(),
		a.rmCmd(),
		a.lsCmd(),
		a.treeCmd(),
		a.validateCmd(),
		a.watchCmd(),
	)
	return root
}

func (a *app) setup(verboseSet bool) error {
	override, err := a.loadOverride()
	if err != nil {
		return err
	}
	if verboseSet || override.LogLvl == nil {
		override.LogLvl = util.Pointer(a.verbose)
	}
	cfg := config.NewConfig(override)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	util.InitializeLogger(cfg.LogLvl)

	a.cfg = cfg
	a.reg = descriptor.NewRegistry()
	nodes.RegisterBuiltins(a.reg)
	a.fs = filesystem.NewFS(cfg, filesystem.WithRegistry(a.reg))

	logger := util.GetLogger("main")
	logger.Debug().Str("config", a.configPath).Strs("types", a.reg.Types()).Msg("Initialized")
	return nil
}

func (a *app) loadOverride() (*config.ConfigOverride, error) {
	path := a.configPath
	if path == "" {
		def, err := config.DefaultConfigPath()
		if err != nil {
			return &config.ConfigOverride{}, nil
		}
		if _, err := os.Stat(def); err != nil {
			return &config.ConfigOverride{}, nil
		}
		path = def
		a.configPath = def
	}
	override, err := config.LoadConfigOverrideFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return override, nil
}

// loadNode loads the node at dir, failing when there is none
func (a *app) loadNode(dir string) (nodetree.Node, error) {
	n, found, err := a.fs.LoadFromDirectory(dir)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Newf("no node at %s", dir)
	}
	return n, nil
}
