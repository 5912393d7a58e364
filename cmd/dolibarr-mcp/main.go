// Command dolibarr-mcp serves the Dolibarr ERP REST API as MCP tools.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
