// Package logging builds the zerolog logger shared by scriptorium components.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// LogBuild collects the options for a logger.
type LogBuild struct {
	writer    io.Writer
	path      string
	level     string
	component string
}

// LogData is a built logger and the file it writes to, if any.
type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{}
}

// FromPath appends log lines to the file at path.
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

// FromBuffer writes log lines to w.
func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel sets the minimum level by name ("debug", "info", "warn", ...).
func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

// WithComponent tags every line with a component field.
func (build *LogBuild) WithComponent(name string) *LogBuild {
	build.component = name
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	writer := build.writer
	if writer == nil {
		writer = os.Stderr
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}

	level := zerolog.InfoLevel
	if build.level != "" {
		level, err = zerolog.ParseLevel(build.level)
		if err != nil {
			return nil, err
		}
	}

	ctx := zerolog.New(writer).Level(level).With().Timestamp()
	if build.component != "" {
		ctx = ctx.Str("component", build.component)
	}
	logData.Logger = ctx.Logger()
	return
}

// Close closes the log file, if one was opened.
func (logData *LogData) Close() error {
	if logData.LogFile != nil {
		return logData.LogFile.Close()
	}
	return nil
}
