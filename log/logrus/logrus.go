// Package logrus adapts a logrus entry to the scopecache Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/scopecache"
)

type Logger struct{ E *logrus.Entry }

var _ scopecache.Logger = Logger{}

func (l Logger) Debug(msg string, f scopecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f scopecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l Logger) Warn(msg string, f scopecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l Logger) Error(msg string, f scopecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
