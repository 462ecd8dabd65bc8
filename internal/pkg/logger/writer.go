package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// LogWriter 供 gorm logger 使用的输出，与业务日志共用同一 WriteSyncer
type LogWriter struct {
	zapcore.WriteSyncer
}

func (l *LogWriter) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.WriteSyncer, format+"\n", args...)
	_ = l.WriteSyncer.Sync()
}

// GetWriter 获取 SQL 日志输出
func GetWriter() *LogWriter {
	return logWriter
}
