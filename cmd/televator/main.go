// televator estimates elevator rides from network latency.
package main

import (
	"os"

	"github.com/miradorstack/televator/cmd/televator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
