// Package swaplog centralizes btclog backend configuration so every
// subsystem package in this module can obtain a tagged sub-logger the way
// lnd's packages do (compare breacharbiter.go's brarLog, htlcswitch's
// switch.go), without each of them wiring up its own backend.
package swaplog

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// backend is the process-wide log backend. It starts out writing to
// stdout only; once cmd/swapd calls InitLogRotator, logWriter also copies
// every line to the rotating log file.
var backend = btclog.NewBackend(logWriter{})

// logWriter writes to stdout and, once logRotator is set, to the log file,
// so loggers created at package init time reach the file as well.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	if logRotator != nil {
		logRotator.Write(p) //nolint:errcheck
	}
	return os.Stdout.Write(p)
}

// loggers holds every logger SubLogger has handed out, by tag, so
// SetLevel can reach it.
var loggers = make(map[string]btclog.Logger)

// rotator is kept so it can be closed on shutdown once InitLogRotator has
// been called.
var logRotator *rotator.Rotator

// SubLogger returns a new leveled logger tagged with subsystem, e.g.
// "RECV" for recovery or "XTKR" for protocol/xmrtaker. Packages call
// this once at init time and keep the result in a package-level log var,
// matching lnd's per-subsystem logging convention.
func SubLogger(subsystem string) btclog.Logger {
	l := backend.Logger(subsystem)
	loggers[subsystem] = l
	return l
}

// InitLogRotator opens a rotating log file at logFile (10 MiB threshold per
// lnd's own default, maxRollFiles historical files kept) and directs every
// subsystem logger there in addition to stdout.
func InitLogRotator(logFile string, maxRollFiles int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRollFiles)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// Close releases the underlying log file, if one was opened.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}

// SetLevel adjusts the verbosity of the named subsystem's logger.
func SetLevel(subsystem string, lvl btclog.Level) {
	if l, ok := loggers[subsystem]; ok {
		l.SetLevel(lvl)
	}
}
