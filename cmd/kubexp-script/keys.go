package main

import (
	"fmt"
	"strconv"
	"strings"
)

// keyAliases maps script tokens to the bytes a terminal sends for them.
var keyAliases = map[string]string{
	"enter":     "\r",
	"return":    "\r",
	"backspace": "\x7f",
	"esc":       "\x1b",
	"escape":    "\x1b",
	"space":     " ",
	"up":        "\x1b[A",
	"down":      "\x1b[B",
	"right":     "\x1b[C",
	"left":      "\x1b[D",
	"pgup":      "\x1b[5~",
	"pageup":    "\x1b[5~",
	"pgdown":    "\x1b[6~",
	"pagedown":  "\x1b[6~",
	"ctrl+c":    "\x03",
}

func parseKeyToken(token string) (string, error) {
	if len([]rune(token)) == 1 {
		return token, nil
	}
	lower := strings.ToLower(token)
	if v, ok := keyAliases[lower]; ok {
		return v, nil
	}
	if strings.HasPrefix(lower, "0x") {
		parsed, err := strconv.ParseUint(lower[2:], 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid hex token %q", token)
		}
		return string(rune(parsed)), nil
	}
	return "", fmt.Errorf("unknown key token %q", token)
}
