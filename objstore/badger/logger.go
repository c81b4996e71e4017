package badger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) msg(f string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(f, v...))
}

func (z *zapLogger) Errorf(f string, v ...interface{}) {
	z.l.Error(z.msg(f, v...))
}

func (z *zapLogger) Warningf(f string, v ...interface{}) {
	z.l.Warn(z.msg(f, v...))
}

// badger is chatty on info, keep it below the default level.
func (z *zapLogger) Infof(f string, v ...interface{}) {
	z.l.Debug(z.msg(f, v...))
}

func (z *zapLogger) Debugf(f string, v ...interface{}) {
	z.l.Debug(z.msg(f, v...))
}
