// Package main provides the entry point for the cardmap CLI tool.
package main

import (
	"github.com/rewardsense/cardmap/cmd/cardmap/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
