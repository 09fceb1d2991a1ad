// Package main provides the catalogue CLI.
package main

import "github.com/mesh-intelligence/catalogue/internal/cli"

func main() {
	cli.Execute()
}
