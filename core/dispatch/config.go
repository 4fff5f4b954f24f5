package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/offboard/core/setpoint"
)

// Config defines the setpoint envelope and the timing of the confirm phase.
type Config struct {
	FrameID string `json:"frame_id"`
	// SettleMS is the pause between publish and the mode request.
	SettleMS int `json:"settle_ms"`
	// GraceMS bounds the wait for subscribers after the mode request.
	GraceMS int `json:"grace_ms"`
	// PollMS is the interval between subscriber samples.
	PollMS int `json:"poll_ms"`
}

// SetDefaults applies the standard timings.
func (c *Config) SetDefaults() {
	if c.FrameID == "" {
		c.FrameID = setpoint.DefaultFrameID
	}
	if c.SettleMS == 0 {
		c.SettleMS = 200
	}
	if c.GraceMS == 0 {
		c.GraceMS = 3000
	}
	if c.PollMS == 0 {
		c.PollMS = 200
	}
}

// Validate checks the timings are usable.
func (c Config) Validate() error {
	if c.SettleMS < 0 || c.GraceMS < 0 {
		return fmt.Errorf("settle_ms and grace_ms must not be negative")
	}
	if c.PollMS <= 0 {
		return fmt.Errorf("poll_ms must be positive")
	}
	return nil
}

func (c Config) Settle() time.Duration { return time.Duration(c.SettleMS) * time.Millisecond }
func (c Config) Grace() time.Duration  { return time.Duration(c.GraceMS) * time.Millisecond }
func (c Config) Poll() time.Duration   { return time.Duration(c.PollMS) * time.Millisecond }
