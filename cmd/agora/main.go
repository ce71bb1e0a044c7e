// Package main is the single-binary entrypoint for agora.
// One binary runs the governance node and its admin commands.
package main

import "github.com/agora-network/agora/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
