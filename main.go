// main is the entry point for the folio CLI.
package main

import (
	"github.com/huangsam/folio/cmd"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()

	if err := cmd.Execute(); err != nil {
		iocache.CloseCaching()
		contract.LogFatal("folio", err)
	}
}
