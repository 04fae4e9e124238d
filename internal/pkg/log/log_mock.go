package log

import (
	"os"
)

// MockLogger is a basic debug-level logger for tests.
var MockLogger = New("debug", os.Stderr)
