/*
Copyright © 2024 Jake Rogers <code@supportoss.org>
*/
package main

import (
	"os"

	"github.com/JakeTRogers/smokeprobe/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
