// cmd/lilith/main.go
package main

import (
	"os"

	"github.com/lilith-pkg/lilith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
