// Command ctl runs the translation pipeline from the command line against
// the configured store.
package main

import (
	"os"

	"code-translator/internal/sandbox"
)

func main() {
	sandbox.ServeGoRunner()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
