// mimicd is a configuration-driven mock HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/apimimic/mimicd/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
