// logging.go - Host-facing notices
//
// Grounded in the teacher's logging convention (features.go, file_io.go):
// plain fmt.Fprintf(os.Stderr, ...) at host boundaries, no logging
// library — the teacher never imports one anywhere in its 309 files, so
// none is introduced here either (see DESIGN.md's stdlib-justification
// entry for this file).

package machine

import (
	"fmt"
	"os"
)

// hostLog is the single notice path every recoverable host-boundary error
// in this package goes through, gated by the MachineConfig.Quiet flag (spec.md
// §7 "Host-boundary errors... are logged and the core continues").
func hostLog(quiet bool, format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "machine: "+format+"\n", args...)
}
