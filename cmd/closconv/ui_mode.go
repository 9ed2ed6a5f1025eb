package main

import (
	"fmt"
	"os"
	"strings"
)

// useProgressUI decides whether the rewrite runs under the progress view.
// "auto" enables it only when stderr is a terminal and there is more than one
// method to show.
func useProgressUI(value string, methods int) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return methods > 1 && isTerminal(os.Stderr), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}
