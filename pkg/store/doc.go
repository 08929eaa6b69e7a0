// Package store keeps the active configuration document for a long-running
// process and reloads it when the file on disk changes.
//
// Readers call Store.Load or Store.Config at any time; the watcher swaps in a
// new document only after it has been decoded and fully validated, so a bad
// edit never replaces a good configuration.
package store
