// Command engine starts the transaction ingestion and categorization
// service, grounded on the teacher's cmd/cli/serve.go.
package main

import (
	"log"

	"txledger/internal/config"
	"txledger/internal/fxapp"
)

func main() {
	log.Println("========================================")
	log.Println("  Transaction Ledger Engine")
	log.Println("========================================")

	if config.IsDevelopment() {
		log.Println("mode: development")
	} else {
		log.Println("mode: production")
	}

	log.Println("initializing dependency injection (uber fx)...")
	fxapp.Application().Run()
}
