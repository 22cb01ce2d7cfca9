// Package main provides the ghostchrome command: launch a managed Chrome,
// attach to it, and clean up after it.
package main

import (
	"os"
)

func main() {
	os.Exit(execute())
}
