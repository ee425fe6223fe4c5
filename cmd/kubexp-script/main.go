package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultCols = 100
	defaultRows = 30
)

type options struct {
	cols        int
	rows        int
	script      string
	timeout     time.Duration
	snapshotDir string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "kubexp-script [flags] [-- command [args...]]",
		Short: "Replay a key script against kubexp in a headless terminal",
		Long: `kubexp-script starts kubexp (or the given command) inside a terminal
emulator, replays a script of key presses and prints or snapshots the
screen. The script is read from --script or stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"kubexp"}
			}
			in := cmd.InOrStdin()
			if o.script != "" && o.script != "-" {
				f, err := os.Open(o.script)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			steps, err := parseScript(in)
			if err != nil {
				return fmt.Errorf("parse script: %w", err)
			}
			return o.run(cmd.OutOrStdout(), args, steps)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.cols, "cols", defaultCols, "terminal columns")
	f.IntVar(&o.rows, "rows", defaultRows, "terminal rows")
	f.StringVar(&o.script, "script", "", "script file, - or empty for stdin")
	f.DurationVar(&o.timeout, "timeout", 10*time.Second, "how long expect and wait may block")
	f.StringVar(&o.snapshotDir, "snapshot-dir", "snapshots", "directory for snapshot paths without a directory")
	return cmd
}

func (o *options) run(out io.Writer, command []string, steps []step) error {
	s, err := newSession(o.cols, o.rows)
	if err != nil {
		return err
	}
	defer s.close()
	if err := s.resize(o.cols, o.rows); err != nil {
		return err
	}
	if err := s.start(command); err != nil {
		return err
	}
	fmt.Fprintf(out, "running %s (cols=%d rows=%d)\n", strings.Join(command, " "), o.cols, o.rows)

	defer func() {
		if err := s.terminate(); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		_ = s.wait(500 * time.Millisecond)
	}()

	for _, st := range steps {
		if err := o.exec(out, s, st); err != nil {
			return fmt.Errorf("line %d: %w", st.line, err)
		}
	}
	return nil
}

func (o *options) exec(out io.Writer, s *session, st step) error {
	switch st.op {
	case opKey, opType:
		return s.send(st.input)
	case opSleep:
		time.Sleep(st.duration)
	case opExpect:
		return s.expect(st.text, o.timeout)
	case opScreen:
		for _, row := range s.screen(st.ansi) {
			fmt.Fprintln(out, row)
		}
	case opSnapshot:
		path := st.path
		if !strings.ContainsRune(path, os.PathSeparator) {
			path = o.snapshotDir + string(os.PathSeparator) + path
		}
		if err := writeSnapshot(s.screen(false), path); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved snapshot: %s\n", path)
	case opResize:
		if err := s.resize(st.cols, st.rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "resized to %dx%d\n", st.cols, st.rows)
	case opWait:
		if err := s.wait(o.timeout); err != nil {
			return err
		}
		fmt.Fprintln(out, "process exited")
	}
	return nil
}
