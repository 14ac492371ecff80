package recording

import (
	"io"

	"github.com/syifan/goseth"

	"github.com/jasonKoogler/noc-lat/internal/estimator"
)

// DefaultDumpDepth reaches the per-hop delays of every result.
const DefaultDumpDepth = 8

// Dump serializes results as JSON, following nested fields up to maxDepth.
func Dump(w io.Writer, results []estimator.Result, maxDepth int) error {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(results)
	serializer.SetMaxDepth(maxDepth)

	return serializer.Serialize(w)
}
