package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	klog "k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Options selects where log output goes and how chatty it is.
type Options struct {
	// File receives the log. Empty discards everything, since the UI owns
	// the terminal while it runs.
	File string
	// Verbosity is the highest logr V-level that is written.
	Verbosity int
}

// Setup configures controller-runtime and klog to share one logr and returns
// it together with a function that closes the log file.
func Setup(opts Options) (logr.Logger, func() error, error) {
	var w io.Writer = io.Discard
	closer := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return logr.Discard(), closer, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return logr.Discard(), closer, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = f.Close
	}
	logger := newLogger(w, opts.Verbosity)
	ctrl.SetLogger(logger)
	// client-go logs through klog; point it at the same sink
	klog.SetLogger(logger)
	return logger, closer, nil
}

// SetupForTest configures quiet logging for tests. When DEBUG is set, a dev
// logger writes to stderr instead.
func SetupForTest() logr.Logger {
	var w io.Writer = io.Discard
	v := 0
	if os.Getenv("DEBUG") != "" {
		w = os.Stderr
		v = 4
	}
	logger := newLogger(w, v)
	ctrl.SetLogger(logger)
	klog.SetLogger(logger)
	return logger
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	if verbosity < 0 {
		verbosity = 0
	}
	return zap.New(
		zap.UseDevMode(true),
		zap.WriteTo(w),
		zap.Level(zapcore.Level(-verbosity)),
	)
}
