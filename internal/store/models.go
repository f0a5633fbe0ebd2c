package store

// Meta keys.
const (
	MetaDimension      = "dimension"
	MetaEmbeddingModel = "embedding_model"
	MetaSource         = "source"
)

// Info summarizes what the database holds.
type Info struct {
	Records        int
	Vectors        int
	Dimension      int
	EmbeddingModel string
	Source         string
}
