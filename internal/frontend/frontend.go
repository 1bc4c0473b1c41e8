// Package frontend provides the two SDR front-end collaborators named
// in §6: a child-process front-end whose stdout is raw interleaved
// u8 IQ, and a direct-device front-end. Both satisfy Frontend, so
// intake can consume either the same way.
package frontend

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Frontend opens a continuous raw IQ byte stream and releases whatever
// resources it holds on Close.
type Frontend interface {
	Open(ctx context.Context) (io.Reader, error)
	Close() error
}

// ProcessFrontend runs an external SDR utility (e.g. rtl_sdr) as a
// child process and streams its stdout (§6 option a).
type ProcessFrontend struct {
	logger *logrus.Logger
	name   string
	args   []string
	cmd    *exec.Cmd
}

// NewProcessFrontend creates a ProcessFrontend that will run name with
// args when Open is called.
func NewProcessFrontend(logger *logrus.Logger, name string, args []string) *ProcessFrontend {
	return &ProcessFrontend{logger: logger, name: name, args: args}
}

// Open starts the child process and returns its stdout.
func (f *ProcessFrontend) Open(ctx context.Context) (io.Reader, error) {
	f.cmd = exec.CommandContext(ctx, f.name, f.args...)
	stdout, err := f.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("frontend: stdout pipe: %w", err)
	}
	if err := f.cmd.Start(); err != nil {
		return nil, fmt.Errorf("frontend: start %s: %w", f.name, err)
	}
	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{"cmd": f.name, "args": f.args}).Info("SDR front-end process started")
	}
	return stdout, nil
}

// Close waits for the child process to exit after its context is
// canceled.
func (f *ProcessFrontend) Close() error {
	if f.cmd == nil || f.cmd.Process == nil {
		return nil
	}
	return f.cmd.Wait()
}
