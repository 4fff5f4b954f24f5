package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/TylerBrock/colorjson"
	"github.com/fatih/color"

	"github.com/kilianp07/offboard/core/dispatch"
	"github.com/kilianp07/offboard/core/dispatch/logging"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// prettyJSON renders v as indented JSON, colored unless color is disabled.
func prettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = color.NoColor
	return f.Marshal(obj)
}

func printReport(w io.Writer, rep dispatch.Report) {
	okColor.Fprintf(w, "published %s on %s\n", rep.Kind, rep.Topic)
	if rep.ModeEnabled {
		okColor.Fprintln(w, "guided mode enabled")
	} else {
		warnColor.Fprintf(w, "guided mode not confirmed: %v\n", rep.ModeErr)
	}
	if rep.MaxSubscribers == 0 {
		warnColor.Fprintf(w, "no subscribers after %s\n", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "subscribers: %d\n", rep.MaxSubscribers)
	}
	if rep.Interrupted {
		warnColor.Fprintln(w, "wait interrupted")
	}
}

func printRecord(w io.Writer, rec logging.LogRecord) {
	dimColor.Fprintf(w, "%s ", rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%-12s %-32s ", rec.Kind, rec.Topic)
	switch {
	case rec.Error != "":
		errColor.Fprintf(w, "error: %s", rec.Error)
	case rec.ModeEnabled:
		okColor.Fprint(w, "mode ok")
	default:
		warnColor.Fprintf(w, "mode failed: %s", rec.ModeError)
	}
	fmt.Fprintf(w, " subscribers=%d warnings=%d", rec.MaxSubscribers, rec.Warnings)
	if rec.Interrupted {
		warnColor.Fprint(w, " interrupted")
	}
	fmt.Fprintln(w)
}
