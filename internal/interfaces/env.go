package interfaces

// EnvStore is the small persisted key/value state per signature. Overwrite
// semantics: every Set rewrites the document, last write wins.
type EnvStore interface {
	Get(signature, key string) (string, bool, error)
	Set(signature, key, value string) error
}
