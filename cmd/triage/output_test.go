package main

import "testing"

func TestColorize(t *testing.T) {
	noColor = false
	got := colorize(colorGreen, "ok")
	if got != colorGreen+"ok"+colorReset {
		t.Errorf("colorize = %q", got)
	}

	noColor = true
	t.Cleanup(func() { noColor = false })
	if got := colorize(colorGreen, "ok"); got != "ok" {
		t.Errorf("colorize with --no-color = %q", got)
	}
}
