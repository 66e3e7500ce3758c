package anon

// Anonymizer maps a value to its anonymized form. Implementations must be deterministic.
type Anonymizer interface {
	Anonymize(input string) (string, error)
}
