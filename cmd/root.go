package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offboard/config"
	coremqtt "github.com/kilianp07/offboard/core/mqtt"
	"github.com/kilianp07/offboard/infra/logger"
)

type rootOptions struct {
	cfgPath   string
	namespace string
	verbose   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "offboard",
		Short:         "Publish one offboard setpoint and request guided mode",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetVerbose(opts.verbose)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	pf.StringVarP(&opts.namespace, "namespace", "n", "", "topic namespace (default \""+coremqtt.DefaultNamespace+"\")")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newLocalCmd(opts), newHistoryCmd(opts), newSimulateCmd(opts))
	return root
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	root.SetArgs(expandVectorFlags(os.Args[1:]))
	return root.Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.namespace != "" {
		cfg.Namespace = coremqtt.Namespace(o.namespace)
	}
	return cfg, nil
}
