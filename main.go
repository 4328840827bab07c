// Package main is the entry point for the vdrm CLI.
package main

import "vdrm.dev/pkg/vdrm/cmd"

func main() {
	cmd.Execute()
}
