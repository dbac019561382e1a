// Package logging sets up the process-wide structured logger shared by
// every meta-service component and by the reference storage node
// binary. The reference client does not use it.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It is nil until Init runs; cmd/metad and
// cmd/storaged call Init before constructing any component that logs.
var Log *logrus.Logger

// Init configures Log for the given service name and level. JSON
// output is used except at debug level, where a human-readable text
// formatter with full timestamps is easier to read locally.
func Init(service string, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stdout
	l.SetLevel(level)

	if level == logrus.DebugLevel {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	l.SetFormatter(withService(l.Formatter, service))
	Log = l
	return l
}

// withService wraps a formatter so every entry carries a constant
// "service" field, without requiring every call site to attach one.
func withService(inner logrus.Formatter, service string) logrus.Formatter {
	return &serviceFormatter{inner: inner, service: service}
}

type serviceFormatter struct {
	inner   logrus.Formatter
	service string
}

func (f *serviceFormatter) Format(e *logrus.Entry) ([]byte, error) {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = f.service
	}
	return f.inner.Format(e)
}

// ParseLevel converts a config string to a logrus.Level, defaulting to
// Info on an unrecognized value.
func ParseLevel(raw string) logrus.Level {
	lvl, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
