package attention

import "fmt"

// Dimension labels reported by ShapeMismatchError.
const (
	DimRank     = "rank"
	DimBatch    = "batch size"
	DimSequence = "sequence length"
	DimKeyWidth = "key width"
)

// ShapeMismatchError reports a disagreement between the query, key and
// value tensors handed to the attention routine. It is raised by shape
// validation before any matrix multiply runs.
type ShapeMismatchError struct {
	Dim  string // which dimension disagreed
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("attention: %s mismatch: got %d, want %d", e.Dim, e.Got, e.Want)
}

// DivisibilityError reports a total key or value width that cannot be
// split evenly across the requested number of heads.
type DivisibilityError struct {
	Width string // "key" or "value"
	Total int
	Heads int
}

func (e *DivisibilityError) Error() string {
	return fmt.Sprintf("attention: total %s width %d is not divisible by %d heads", e.Width, e.Total, e.Heads)
}
