package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/roomstate/wbcache"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ wbcache.Logger = LogrusLogger{}

func (l LogrusLogger) Debug(msg string, f wbcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f wbcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l LogrusLogger) Warn(msg string, f wbcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l LogrusLogger) Error(msg string, f wbcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
