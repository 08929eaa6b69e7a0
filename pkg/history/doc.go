// Package history records every configuration load in a SQLite database so
// operators can see when a configuration changed and why a reload failed.
//
// The schema is managed with golang-migrate from embedded migrations.
package history
