// Package attention implements the scaled-dot-product multi-head
// attention routine at the heart of the encoder stack, as a pure
// function over query/key/value tensors.
package attention

import (
	"fmt"
	"math"

	"github.com/andreaslam/kZero/pkg/tensor"
)

// Shapes describes one validated attention invocation.
type Shapes struct {
	Batch    int // shared batch size
	QueryLen int // sequence length of the queries
	KeyLen   int // sequence length of the keys and values
	Heads    int
	DKey     int // per-head key width, shared by queries and keys
	DValue   int // per-head value width
}

// CheckShapes validates the tensors handed to MultiHeadAttention:
// all three must be rank 3; Q, K and V must share a batch size; K and V
// must share a sequence length; Q and K must share a channel width; and
// the key and value widths must split evenly across heads. On success
// it returns the per-head geometry.
func CheckShapes(q, k, v *tensor.Tensor, heads int) (Shapes, error) {
	for _, t := range []*tensor.Tensor{q, k, v} {
		if t.NumDims() != 3 {
			return Shapes{}, &ShapeMismatchError{Dim: DimRank, Want: 3, Got: t.NumDims()}
		}
	}

	batch, queryLen, dkTotal := q.Shape[0], q.Shape[1], q.Shape[2]
	if k.Shape[0] != batch {
		return Shapes{}, &ShapeMismatchError{Dim: DimBatch, Want: batch, Got: k.Shape[0]}
	}
	if v.Shape[0] != batch {
		return Shapes{}, &ShapeMismatchError{Dim: DimBatch, Want: batch, Got: v.Shape[0]}
	}

	keyLen := k.Shape[1]
	if v.Shape[1] != keyLen {
		return Shapes{}, &ShapeMismatchError{Dim: DimSequence, Want: keyLen, Got: v.Shape[1]}
	}
	if k.Shape[2] != dkTotal {
		return Shapes{}, &ShapeMismatchError{Dim: DimKeyWidth, Want: dkTotal, Got: k.Shape[2]}
	}

	dvTotal := v.Shape[2]
	if heads < 1 || dkTotal%heads != 0 {
		return Shapes{}, &DivisibilityError{Width: "key", Total: dkTotal, Heads: heads}
	}
	if dvTotal%heads != 0 {
		return Shapes{}, &DivisibilityError{Width: "value", Total: dvTotal, Heads: heads}
	}

	return Shapes{
		Batch:    batch,
		QueryLen: queryLen,
		KeyLen:   keyLen,
		Heads:    heads,
		DKey:     dkTotal / heads,
		DValue:   dvTotal / heads,
	}, nil
}

// MultiHeadAttention computes scaled-dot-product attention partitioned
// into heads independent subspaces.
//
// Input shapes:
//   - q: (batch, queryLen, heads*dk)
//   - k: (batch, keyLen, heads*dk)
//   - v: (batch, keyLen, heads*dv)
//
// The channel axis of each input is split into heads equal groups and
// the head axis folded into the batch axis, so the score and context
// multiplies run over all heads at once. Scores are scaled by
// 1/sqrt(dk) before the softmax; without that scaling the softmax
// saturates as dk grows.
//
// Returns the recombined output (batch, queryLen, heads*dv) and the
// attention weights (batch*heads, queryLen, keyLen), whose rows are
// non-negative and sum to 1. Inputs are never mutated.
func MultiHeadAttention(q, k, v *tensor.Tensor, heads int) (*tensor.Tensor, *tensor.Tensor, error) {
	s, err := CheckShapes(q, k, v, heads)
	if err != nil {
		return nil, nil, err
	}

	// (batch, m, heads*dk) -> (batch*heads, m, dk)
	qSplit, err := splitHeads(q, s.Batch, s.QueryLen, heads, s.DKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split query heads: %w", err)
	}
	kSplit, err := splitHeads(k, s.Batch, s.KeyLen, heads, s.DKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split key heads: %w", err)
	}
	vSplit, err := splitHeads(v, s.Batch, s.KeyLen, heads, s.DValue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to split value heads: %w", err)
	}

	// (batch*heads, n, dk) -> (batch*heads, dk, n) for the score multiply
	kT, err := kSplit.Transpose(1, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to transpose keys: %w", err)
	}

	scores, err := tensor.Matmul(qSplit, kT)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute attention scores: %w", err)
	}
	scores = scores.Scale(float32(1 / math.Sqrt(float64(s.DKey))))

	weights, err := tensor.Softmax(scores, scores.NumDims()-1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to normalize attention scores: %w", err)
	}

	context, err := tensor.Matmul(weights, vSplit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply attention weights: %w", err)
	}

	// (batch*heads, m, dv) -> (batch, m, heads*dv)
	combined, err := mergeHeads(context, s.Batch, s.QueryLen, heads, s.DValue)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge heads: %w", err)
	}

	return combined, weights, nil
}

// splitHeads folds the head groups of the channel axis into the batch
// axis: (batch, seq, heads*width) -> (batch*heads, seq, width).
func splitHeads(t *tensor.Tensor, batch, seq, heads, width int) (*tensor.Tensor, error) {
	grouped := t.Reshape([]int{batch, seq, heads, width})
	swapped, err := grouped.Transpose(1, 2) // (batch, heads, seq, width)
	if err != nil {
		return nil, err
	}
	return swapped.Reshape([]int{batch * heads, seq, width}), nil
}

// mergeHeads is the inverse of splitHeads:
// (batch*heads, seq, width) -> (batch, seq, heads*width).
func mergeHeads(t *tensor.Tensor, batch, seq, heads, width int) (*tensor.Tensor, error) {
	grouped := t.Reshape([]int{batch, heads, seq, width})
	swapped, err := grouped.Transpose(1, 2) // (batch, seq, heads, width)
	if err != nil {
		return nil, err
	}
	return swapped.Reshape([]int{batch, seq, heads * width}), nil
}
