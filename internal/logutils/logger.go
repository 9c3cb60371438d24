package logutils

import (
	"github.com/sirupsen/logrus"
)

// Log is the logger used by the whole service.
var Log = logrus.New()

// Fields is the type of logrus.Fields.
type Fields = logrus.Fields

//nolint:gochecknoinits // This is the only place where we should set the formatter.
func init() {
	Log.SetLevel(logrus.InfoLevel)
	Log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat:           "2006-01-02 15:04:05",
		ForceColors:               true,
		EnvironmentOverrideColors: true,
		FullTimestamp:             true,
	})
}

// SetLevel parses a level name ("debug", "warn", ...) and applies it.
// Unknown names leave the current level untouched.
func SetLevel(name string) {
	if name == "" {
		return
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		Log.Warnf("unknown log level %q, keeping %s", name, Log.GetLevel())
		return
	}
	Log.SetLevel(lvl)
}
