// Command unixfsctl is a small CLI around the ufs/vfs/process stack: it
// formats images, seeds them from a host directory, and opens an
// interactive shell over one mounted process.
package main

import (
	"fmt"
	"os"

	"github.com/blockkit/unixfs/cmd/unixfsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
