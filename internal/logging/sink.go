package logging

import "os"

// zapStdout is the default sink; split out so tests can swap it via build
// tags if ever needed without touching logger.go's core wiring logic.
var zapStdout = os.Stdout
