package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordMonitor struct {
	errs    []error
	tags    map[string]string
	panics  []any
	flushed time.Duration
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(v any)    { r.panics = append(r.panics, v) }
func (r *recordMonitor) Flush(d time.Duration) { r.flushed = d }

func TestCaptureForwardsToMonitor(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	CaptureException(errors.New("no reply"), map[string]string{"module": "mode"})
	CaptureException(nil, nil)
	Flush(time.Second)

	assert.Len(t, mon.errs, 1)
	assert.Equal(t, "mode", mon.tags["module"])
	assert.Equal(t, time.Second, mon.flushed)
}

func TestInitIgnoresNil(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})
	Init(nil)
	CaptureException(errors.New("x"), nil)
	assert.Len(t, mon.errs, 1)
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	assert.PanicsWithValue(t, "boom", func() {
		defer Recover()
		panic("boom")
	})
	assert.Equal(t, []any{"boom"}, mon.panics)
	assert.Equal(t, 2*time.Second, mon.flushed)
}
