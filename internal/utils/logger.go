package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var base = logrus.New()

// ConfigureLogging sets level and format ("text" or "json") for every logger
// handed out by NewLogger
func ConfigureLogging(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return xerrors.Errorf("invalid log level: %w", err)
	}

	switch format {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return xerrors.Errorf("unknown log format %q", format)
	}

	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)
	base.SetLevel(lvl)
	return nil
}

// NewLogger returns a logger tagged with the component name
func NewLogger(name string) *logrus.Entry {
	return base.WithField("component", name)
}
