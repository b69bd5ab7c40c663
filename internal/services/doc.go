// Package services holds the registry of configured collection directories.
//
// NewRegistry builds one directory.Directory per enabled collection from the
// built-in definitions and the configured overrides, reads seed files, and
// owns the seed watchers. The HTTP server and the daemon look directories up
// by kind through the registry.
package services
