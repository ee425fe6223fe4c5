package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// op is one script instruction.
type op string

const (
	opKey      op = "key"
	opType     op = "type"
	opEnter    op = "enter"
	opSleep    op = "sleep"
	opExpect   op = "expect"
	opScreen   op = "screen"
	opSnapshot op = "snapshot"
	opResize   op = "resize"
	opWait     op = "wait"
)

// step is a parsed script line. Exactly the fields its op needs are set.
type step struct {
	line     int
	op       op
	input    string
	text     string
	duration time.Duration
	ansi     bool
	path     string
	cols     int
	rows     int
}

// parseScript reads one instruction per line. Blank lines and lines starting
// with # are skipped.
//
//	key <token>...        send named keys (enter, esc, ctrl+c, pgdown, ...)
//	type <text>           send text literally, spaces included
//	enter                 shorthand for key enter
//	sleep <duration>
//	expect <text>         wait until text is on screen
//	screen [plain|ansi]   print the screen
//	snapshot <file.png>
//	resize <cols> <rows>
//	wait                  wait for the process to exit
func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		raw := strings.TrimRight(sc.Text(), "\r")
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		s.line = n
		steps = append(steps, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

func parseLine(line string) (step, error) {
	parts := strings.Fields(line)
	name := op(strings.ToLower(parts[0]))
	rest := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch name {
	case opKey:
		if len(parts) < 2 {
			return step{}, errors.New("usage: key <token>...")
		}
		var b strings.Builder
		for _, tok := range parts[1:] {
			in, err := parseKeyToken(tok)
			if err != nil {
				return step{}, err
			}
			b.WriteString(in)
		}
		return step{op: opKey, input: b.String()}, nil
	case opType:
		if rest == "" {
			return step{}, errors.New("usage: type <text>")
		}
		return step{op: opType, input: rest}, nil
	case opEnter:
		return step{op: opKey, input: keyAliases["enter"]}, nil
	case opSleep:
		if len(parts) != 2 {
			return step{}, errors.New("usage: sleep <duration>")
		}
		d, err := time.ParseDuration(parts[1])
		if err != nil {
			return step{}, fmt.Errorf("invalid duration: %w", err)
		}
		return step{op: opSleep, duration: d}, nil
	case opExpect:
		if rest == "" {
			return step{}, errors.New("usage: expect <text>")
		}
		return step{op: opExpect, text: rest}, nil
	case opScreen:
		mode := "plain"
		if len(parts) > 1 {
			mode = strings.ToLower(parts[1])
		}
		if mode != "plain" && mode != "ansi" {
			return step{}, fmt.Errorf("screen mode must be plain or ansi, got %q", mode)
		}
		return step{op: opScreen, ansi: mode == "ansi"}, nil
	case opSnapshot:
		if len(parts) != 2 {
			return step{}, errors.New("usage: snapshot <file>")
		}
		return step{op: opSnapshot, path: parts[1]}, nil
	case opResize:
		if len(parts) != 3 {
			return step{}, errors.New("usage: resize <cols> <rows>")
		}
		cols, err := strconv.Atoi(parts[1])
		if err != nil {
			return step{}, fmt.Errorf("invalid cols: %w", err)
		}
		rows, err := strconv.Atoi(parts[2])
		if err != nil {
			return step{}, fmt.Errorf("invalid rows: %w", err)
		}
		if cols <= 0 || rows <= 0 {
			return step{}, fmt.Errorf("invalid dimensions %dx%d", cols, rows)
		}
		return step{op: opResize, cols: cols, rows: rows}, nil
	case opWait:
		return step{op: opWait}, nil
	}
	return step{}, fmt.Errorf("unknown instruction %q", parts[0])
}
