package main

import (
	"testing"

	"github.com/JakeTRogers/smokeprobe/probe"
)

// TestDefaultTarget guards the symbol the binary probes by default.
func TestDefaultTarget(t *testing.T) {
	var _ *probe.Prober = probe.New(nil, "", "")
}
