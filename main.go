// Package main is the entry point of the triad CLI.
package main

import (
	"os"

	"github.com/huangsam/triad/cmd"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		contract.Logger.Error("triad failed", "err", err)
		os.Exit(1)
	}
}
