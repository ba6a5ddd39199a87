// Command candle compiles XML installer authoring into object files.
package main

import (
	"os"

	"github.com/roach88/candle/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
