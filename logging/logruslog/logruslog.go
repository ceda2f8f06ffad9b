// Package logruslog adapts sirupsen/logrus to logging.Logger.
package logruslog

import (
	"io"

	"github.com/goliatone/go-bankcache/logging"
	"github.com/sirupsen/logrus"
)

var _ logging.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New builds a JSON logrus logger writing to out at level.
func New(level string, out io.Writer) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return Logger{}, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return Logger{E: logrus.NewEntry(l)}, nil
}

func (l Logger) Debug(msg string, f logging.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f logging.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f logging.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f logging.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
