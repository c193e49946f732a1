// Command timeline is a terminal client for the shared memory timeline.
package main

import "os"

func main() {
	if err := newRootCmd(defaultApp).Execute(); err != nil {
		os.Exit(1)
	}
}
