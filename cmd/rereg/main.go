// rereg links a secondary device to a messaging account and waits for the restore choice of a new device.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); nil != err {
		os.Exit(1)
	}
}
