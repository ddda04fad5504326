// ./main.go
package main

import (
	"context"
	"os"

	"github.com/xkilldash9x/pagedriver/cmd"
)

// main is the entry point for `go run .`; cmd/pagedriver adds signal
// handling and the interactive shell.
func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
