// Package types defines the catalogue entity types, the artwork filter
// specification, operation results, configuration, and the sentinel errors
// shared by the store, the image lifecycle manager and the backup engine.
package types
