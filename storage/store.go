// Package storage provides the flat key/value persistence layer and the key
// construction rules for every entity in it. Values are JSON blobs; callers
// never build keys by hand.
package storage

// Store is a flat string-keyed key/value store. Missing keys are not errors:
// Get returns ok=false and callers default to an empty collection.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Has(key string) (bool, error)
}
