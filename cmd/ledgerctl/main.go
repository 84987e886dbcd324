// cmd/ledgerctl/main.go
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(connectLedger).Execute(); err != nil {
		os.Exit(1)
	}
}
