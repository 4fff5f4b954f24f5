package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offboard/core/dispatch/logging"
	"github.com/kilianp07/offboard/core/setpoint"
)

// ErrHistoryDisabled is returned when no history backend is configured.
var ErrHistoryDisabled = errors.New("dispatch history is disabled; set audit.backend to jsonl or sqlite")

type historyOptions struct {
	kind   string
	since  time.Duration
	limit  int
	asJSON bool
}

func newHistoryCmd(ro *rootOptions) *cobra.Command {
	o := &historyOptions{}
	c := &cobra.Command{
		Use:   "history",
		Short: "List past dispatches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, ro, o)
		},
	}
	f := c.Flags()
	f.StringVar(&o.kind, "kind", "", "position, velocity or acceleration")
	f.DurationVar(&o.since, "since", 0, "only dispatches newer than this (e.g. 1h)")
	f.IntVar(&o.limit, "limit", 20, "most recent entries to show, 0 for all")
	f.BoolVar(&o.asJSON, "json", false, "print one JSON document per line")
	return c
}

func (o *historyOptions) query(now time.Time) (logging.LogQuery, error) {
	q := logging.LogQuery{Limit: o.limit}
	if o.kind != "" {
		k, err := setpoint.ParseKind(o.kind)
		if err != nil {
			return q, err
		}
		q.Kind = k.String()
	}
	if o.since > 0 {
		q.Start = now.Add(-o.since)
	}
	return q, nil
}

func runHistory(cmd *cobra.Command, ro *rootOptions, o *historyOptions) error {
	q, err := o.query(time.Now())
	if err != nil {
		return err
	}
	cfg, err := ro.load()
	if err != nil {
		return err
	}
	store, err := logging.NewStore(cfg.Audit)
	if err != nil {
		return err
	}
	if store == nil {
		return ErrHistoryDisabled
	}
	defer store.Close()

	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	w := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(w)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	if len(recs) == 0 {
		dimColor.Fprintln(w, "no dispatches recorded")
		return nil
	}
	for _, r := range recs {
		printRecord(w, r)
	}
	return nil
}
