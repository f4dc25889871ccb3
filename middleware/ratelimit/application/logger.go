package application

import (
	"io"

	"github.com/sirupsen/logrus"
)

var discardLogger logrus.FieldLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
