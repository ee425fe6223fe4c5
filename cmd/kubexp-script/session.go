package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/taigrr/bubbleterm/emulator"
)

const pollInterval = 50 * time.Millisecond

// session runs one command inside a terminal emulator.
type session struct {
	mu     sync.Mutex
	emu    *emulator.Emulator
	cmd    *exec.Cmd
	cols   int
	rows   int
	exited bool
	exitCh chan struct{}
}

func newSession(cols, rows int) (*session, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", cols, rows)
	}

	emu, err := emulator.New(cols, rows)
	if err != nil {
		return nil, fmt.Errorf("create emulator: %w", err)
	}

	s := &session{
		emu:    emu,
		cols:   cols,
		rows:   rows,
		exitCh: make(chan struct{}),
	}
	emu.SetOnExit(func(string) {
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		close(s.exitCh)
	})
	return s, nil
}

func (s *session) start(command []string) error {
	if len(command) == 0 {
		return errors.New("missing command to run")
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("COLUMNS=%d", s.cols), fmt.Sprintf("LINES=%d", s.rows), "TERM=xterm-256color")
	if err := s.emu.StartCommand(cmd); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	return nil
}

func (s *session) send(input string) error {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()
	if exited {
		return errors.New("process has exited")
	}
	if _, err := s.emu.Write([]byte(input)); err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	return nil
}

func (s *session) resize(cols, rows int) error {
	if err := s.emu.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	s.cols, s.rows = cols, rows
	return nil
}

// screen returns the emulator rows, optionally with ANSI sequences removed.
func (s *session) screen(keepANSI bool) []string {
	frame := s.emu.GetScreen()
	rows := make([]string, len(frame.Rows))
	for i, r := range frame.Rows {
		if keepANSI {
			rows[i] = r
		} else {
			rows[i] = ansi.Strip(r)
		}
	}
	return rows
}

// expect polls the screen until text shows up or timeout passes.
func (s *session) expect(text string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if screenContains(s.screen(false), text) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%q not on screen after %s", text, timeout)
		}
		select {
		case <-s.exitCh:
			if screenContains(s.screen(false), text) {
				return nil
			}
			return fmt.Errorf("process exited before %q appeared", text)
		case <-time.After(pollInterval):
		}
	}
}

func screenContains(rows []string, text string) bool {
	for _, r := range rows {
		if strings.Contains(r, text) {
			return true
		}
	}
	return false
}

func (s *session) wait(timeout time.Duration) error {
	select {
	case <-s.exitCh:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("process still running after %s", timeout)
	}
}

func (s *session) terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited || s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	return nil
}

func (s *session) close() {
	s.emu.Close()
}
