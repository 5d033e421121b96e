// Command wlkit runs a headless Wayland server built from this
// module's protocol implementations and inspects running servers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
