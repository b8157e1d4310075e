// Package logging provides the daemon's leveled logger, grounded on the
// mutagen daemon's own logging package: a Level hierarchy, a Logger that is
// safe to use (and to no-op) when nil, and dotted-name subloggers.
package logging

import "os"

// RootLogger is a convenience root logger writing to standard error at
// LevelInfo. Callers that need a different level or sink (tests, the
// client adapter) construct their own via NewLogger.
var RootLogger = NewLogger(LevelInfo, os.Stderr)
