// Package daemon provides the background importer that feeds the sync
// engine from an inbox directory.
//
// The daemon:
// 1. Watches an inbox directory for dropped item files (*.json)
// 2. Imports each item into the current record through the engine
// 3. Periodically triggers a sync when cloud mode is active
// 4. Handles graceful shutdown, flushing any pending remote write
//
// Other programs (editor plugins, shell scripts, mail filters) integrate
// with satchel by writing small JSON item files into the inbox; the
// daemon folds them into the record and removes them once imported.
package daemon
