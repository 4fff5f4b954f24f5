package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offboard/app"
	"github.com/kilianp07/offboard/core/monitoring"
	"github.com/kilianp07/offboard/core/setpoint"
	"github.com/kilianp07/offboard/infra/logger"
)

type localOptions struct {
	position     []float64
	velocity     []float64
	acceleration []float64
	degrees      bool
	dryRun       bool
}

func newLocalCmd(ro *rootOptions) *cobra.Command {
	o := &localOptions{}
	c := &cobra.Command{
		Use:   "local",
		Short: "Publish a local-frame setpoint and enable guided mode",
		Example: `  offboard local --position 1 2 3 90 --degrees
  offboard local --velocity 0 0 -1 0.5
  offboard local --acceleration=0,0,9.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLocal(cmd, ro, o)
		},
	}
	f := c.Flags()
	f.Float64SliceVar(&o.position, "position", nil, "x y z yaw (metres, radians)")
	f.Float64SliceVar(&o.velocity, "velocity", nil, "vx vy vz yaw_rate (m/s, rad/s)")
	f.Float64SliceVar(&o.acceleration, "acceleration", nil, "afx afy afz (m/s²)")
	f.BoolVar(&o.degrees, "degrees", false, "position yaw is in degrees")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the setpoint without connecting")
	return c
}

// selection validates the vector flags. A flag that was given without
// values yields an empty slice rather than nil so it still counts as set.
func (o *localOptions) selection(cmd *cobra.Command) (setpoint.Selection, error) {
	given := func(name string, v []float64) []float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		if v == nil {
			return []float64{}
		}
		return v
	}
	return setpoint.NewSelection(
		given("position", o.position),
		given("velocity", o.velocity),
		given("acceleration", o.acceleration),
		o.degrees,
	)
}

func runLocal(cmd *cobra.Command, ro *rootOptions, o *localOptions) error {
	sel, err := o.selection(cmd)
	if err != nil {
		return err
	}
	cfg, err := ro.load()
	if err != nil {
		return err
	}
	if o.dryRun {
		sp, err := sel.Build(setpoint.NewBuilder(cfg.Setpoint.FrameID))
		if err != nil {
			return err
		}
		out, err := prettyJSON(sp)
		if err != nil {
			return fmt.Errorf("render setpoint: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	}

	if err := app.InitMonitoring(cfg.Sentry); err != nil {
		return err
	}
	defer monitoring.Recover()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	rep, err := svc.Dispatch(ctx, sel)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}
