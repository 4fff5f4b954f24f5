package cmd

import (
	"strconv"
	"strings"
)

var vectorFlags = map[string]bool{
	"--position":     true,
	"--velocity":     true,
	"--acceleration": true,
}

// expandVectorFlags rewrites "--velocity 0 0 -1 0.5" as "--velocity=0,0,-1,0.5"
// so that negative values are not taken for shorthand flags. Every numeric
// token following a vector flag is consumed. Arguments after "--" are kept
// as they are.
func expandVectorFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(out, args[i:]...)
		}
		if !vectorFlags[a] {
			out = append(out, a)
			continue
		}
		var vals []string
		for i+1 < len(args) && isNumber(args[i+1]) {
			vals = append(vals, args[i+1])
			i++
		}
		if len(vals) == 0 {
			out = append(out, a)
			continue
		}
		out = append(out, a+"="+strings.Join(vals, ","))
	}
	return out
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
