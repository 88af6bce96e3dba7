// Package trigger reads edge events from the serial trigger device. The
// firmware emits one line per detected edge; lines containing the falling
// marker advance the layer cycle, rising lines are informational, anything
// else is ignored. The falling marker is checked first because firmware
// revisions have emitted lines carrying both markers.
package trigger
