// Command foodtrack is a terminal client for the food tracking assistant.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
