// Package source obtains raw collection records.
//
// HTTPFetcher reads a collection from the upstream API. ReadSeed reads a
// collection from a YAML, JSON or TOML seed file, and SeedWatcher re-reads a
// seed file whenever it changes on disk.
package source
