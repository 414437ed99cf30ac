// Package cli provides the interactive bmd command-line client.
//
// It wires configuration, the REST API client and an interactive REPL.
// A background watcher probes the server's gRPC health endpoint and
// reports online/offline transitions in the prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
