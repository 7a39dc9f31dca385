// Command jsonrpcd is a reference host for the jsonrpc2go framework: it
// wires a contract.ServerContract, a wire framing, and dispatch.Server
// together behind a cobra CLI, the way a real embedder would, using only
// the built-in demo methods (internal/demomethods) as its payload.
// file: cmd/jsonrpcd/main.go
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
