// Package history keeps a SQLite ledger of processed episodes.
//
// Every episode in a batch appends one row tagged with the batch run id,
// whether it completed or failed. `loreline history` reads the ledger back.
// The ledger is advisory: a failure to record never fails the episode.
package history
