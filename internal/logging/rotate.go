package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// rotateMegabytes caps the live log before lumberjack rolls it to
// "<name>-<timestamp>.log". One rolled generation is kept; age-based pruning
// is CleanupOldLogs' job.
const rotateMegabytes = 4

// BackupPattern matches the rolled generations of a log file named base.log.
func BackupPattern(base string) string {
	return base + "-*.log"
}

func newRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMegabytes,
		MaxBackups: 1,
	}
}
