package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offboard/config"
	"github.com/kilianp07/offboard/infra/logger"
	"github.com/kilianp07/offboard/simulator"
)

type simulateOptions struct {
	reject        bool
	rejectMessage string
	drop          bool
	replyDelay    time.Duration
	channels      []string
}

func newSimulateCmd(ro *rootOptions) *cobra.Command {
	o := &simulateOptions{}
	c := &cobra.Command{
		Use:   "bridge-sim",
		Short: "Run a simulated flight-controller bridge",
		Long: `bridge-sim subscribes to the setpoint channels, advertises its presence and
answers guided-enable requests until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, ro, o)
		},
	}
	f := c.Flags()
	f.BoolVar(&o.reject, "reject", false, "refuse guided-enable requests")
	f.StringVar(&o.rejectMessage, "reject-message", "", "message sent with a refusal")
	f.BoolVar(&o.drop, "drop", false, "never answer guided-enable requests")
	f.DurationVar(&o.replyDelay, "reply-delay", 0, "delay before answering")
	f.StringSliceVar(&o.channels, "channels", nil, "setpoint channels to listen on (default all)")
	c.MarkFlagsMutuallyExclusive("reject", "drop")
	return c
}

func (o *simulateOptions) strategy() simulator.ReplyStrategy {
	switch {
	case o.drop:
		return simulator.Drop{}
	case o.reject:
		return simulator.Reject{Message: o.rejectMessage}
	default:
		return simulator.Accept{}
	}
}

func (o *simulateOptions) bridgeConfig(cfg *config.Config) simulator.Config {
	return simulator.Config{
		MQTT:       cfg.MQTT,
		Namespace:  cfg.Namespace,
		Channels:   o.channels,
		ReplyDelay: o.replyDelay,
	}
}

func runSimulate(cmd *cobra.Command, ro *rootOptions, o *simulateOptions) error {
	cfg, err := ro.load()
	if err != nil {
		return err
	}
	bridge, err := simulator.NewBridge(o.bridgeConfig(cfg), o.strategy())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New("bridge-sim")
	events := bridge.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		logEvents(ctx, log, events)
	}()
	err = bridge.Run(ctx)
	stop()
	<-done
	return err
}

func logEvents(ctx context.Context, log logger.Logger, events <-chan simulator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case simulator.EventSetpoint:
				log.Debugw("setpoint", map[string]any{"topic": ev.Topic, "retained": ev.Retained})
				if out, err := prettyJSON(ev.Setpoint); err == nil {
					log.Infof("setpoint on %s:\n%s", ev.Topic, out)
				}
			case simulator.EventMode:
				switch {
				case ev.Dropped:
					log.Warnf("guided enable %s dropped", ev.RequestID)
				case ev.Accepted:
					log.Infof("guided mode enabled (%s)", ev.RequestID)
				default:
					log.Warnf("guided enable %s refused", ev.RequestID)
				}
			}
		}
	}
}
