package domain

// DefaultKeyPrefix namespaces every key the service writes.
const DefaultKeyPrefix = "footage:"

// VectorConfig holds the embedding settings shared by the indexer and the query path.
type VectorConfig struct {
	Model               string
	Dimensions          int
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns settings tuned for text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:            "text-embedding-3-small",
		Dimensions:       1536,
		QueryInstruction: "Find footage that shows: ",
	}
}
