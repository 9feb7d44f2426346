// Package main hosts the loreline CLI entrypoint and command graph.
//
// `loreline process` wires configuration, the campaign profile, the LLM
// client, extractor, assembler and runner together and prints per-chunk
// progress plus a batch summary table. `history`, `check` and `config`
// cover the run ledger, readiness checks and configuration scaffolding.
//
// Keep this package lean: behaviour belongs in internal packages; commands
// here only translate flags into wiring and results into terminal output.
package main
