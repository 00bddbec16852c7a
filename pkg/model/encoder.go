package model

import (
	"fmt"

	"github.com/andreaslam/kZero/pkg/model/attention"
	"github.com/andreaslam/kZero/pkg/tensor"
)

// EncoderLayer is one residual attention sub-layer followed by one
// residual feed-forward sub-layer, each closed by a LayerNorm:
//
//	att = normAtt(x*alpha + dropout(project(selfAttention(x))))
//	out = normFF(att*alpha + dropout(ff(att)))
//
// Alpha and Beta implement the DeepNorm scheme: the residual path is
// up-scaled by alpha = (2*depth)^(1/4) while the weights that feed a
// residual-scaled normalization (the value slice of the joint
// projection, the output projection and both feed-forward linears) are
// initialized with Xavier gain beta = (8*depth)^(-1/4). The query and
// key slices keep gain 1. Both constants are fixed at construction.
type EncoderLayer struct {
	DModel  int
	Heads   int
	DKey    int
	DValue  int
	DFF     int
	Alpha   float32
	Beta    float32
	Dropout float32

	// Training gates dropout; when false both sub-layers are fully
	// deterministic.
	Training bool

	// WQKV holds the joint query/key/value projection in one buffer;
	// its column ranges [0, heads*dk), [heads*dk, 2*heads*dk) and
	// [2*heads*dk, end) are the q, k and v sub-regions, initialized
	// independently but always applied in a single pass.
	WQKV *tensor.Tensor // (DModel, Heads*(2*DKey+DValue))
	BQKV *tensor.Tensor
	WOut *tensor.Tensor // (Heads*DValue, DModel)
	BOut *tensor.Tensor
	WFF1 *tensor.Tensor // (DModel, DFF)
	BFF1 *tensor.Tensor
	WFF2 *tensor.Tensor // (DFF, DModel)
	BFF2 *tensor.Tensor

	NormAtt *LayerNorm
	NormFF  *LayerNorm

	dkTotal int
	dvTotal int
}

// NewEncoderLayer creates one encoder layer for a tower with the given
// configuration. The caller is expected to have validated cfg.
func NewEncoderLayer(cfg Config) *EncoderLayer {
	alpha, beta := cfg.Alpha(), cfg.Beta()
	dkTotal := cfg.Heads * cfg.DKey
	dvTotal := cfg.Heads * cfg.DValue

	wqkv := tensor.New([]int{cfg.DModel, 2*dkTotal + dvTotal})
	tensor.XavierNormalCols(wqkv, 0, dkTotal, 1)
	tensor.XavierNormalCols(wqkv, dkTotal, 2*dkTotal, 1)
	tensor.XavierNormalCols(wqkv, 2*dkTotal, 2*dkTotal+dvTotal, float64(beta))

	wout := tensor.New([]int{dvTotal, cfg.DModel})
	tensor.XavierNormal(wout, float64(beta))
	wff1 := tensor.New([]int{cfg.DModel, cfg.DFF})
	tensor.XavierNormal(wff1, float64(beta))
	wff2 := tensor.New([]int{cfg.DFF, cfg.DModel})
	tensor.XavierNormal(wff2, float64(beta))

	return &EncoderLayer{
		DModel:  cfg.DModel,
		Heads:   cfg.Heads,
		DKey:    cfg.DKey,
		DValue:  cfg.DValue,
		DFF:     cfg.DFF,
		Alpha:   alpha,
		Beta:    beta,
		Dropout: cfg.Dropout,
		WQKV:    wqkv,
		BQKV:    tensor.New([]int{2*dkTotal + dvTotal}),
		WOut:    wout,
		BOut:    tensor.New([]int{cfg.DModel}),
		WFF1:    wff1,
		BFF1:    tensor.New([]int{cfg.DFF}),
		WFF2:    wff2,
		BFF2:    tensor.New([]int{cfg.DModel}),
		NormAtt: NewLayerNorm(cfg.DModel, 1e-5),
		NormFF:  NewLayerNorm(cfg.DModel, 1e-5),
		dkTotal: dkTotal,
		dvTotal: dvTotal,
	}
}

// ForwardWithWeights runs the layer on a (batch, seq, DModel) sequence
// tensor and additionally returns the attention weights
// (batch*Heads, seq, seq) for external inspection. Subsequent layers
// never depend on the weights.
func (e *EncoderLayer) ForwardWithWeights(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if x.NumDims() != 3 || x.Shape[2] != e.DModel {
		return nil, nil, fmt.Errorf("encoder: expected (batch, seq, %d) input, got shape %v", e.DModel, x.Shape)
	}

	// Joint Q/K/V projection in one pass, then slice the channel axis
	// into the query, key and value widths in that fixed order.
	qkv, err := linear(x, e.WQKV, e.BQKV)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to project q/k/v: %w", err)
	}
	q, err := qkv.SliceLastDim(0, e.dkTotal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to slice queries: %w", err)
	}
	k, err := qkv.SliceLastDim(e.dkTotal, 2*e.dkTotal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to slice keys: %w", err)
	}
	v, err := qkv.SliceLastDim(2*e.dkTotal, 2*e.dkTotal+e.dvTotal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to slice values: %w", err)
	}

	att, weights, err := attention.MultiHeadAttention(q, k, v, e.Heads)
	if err != nil {
		return nil, nil, err
	}

	projected, err := linear(att, e.WOut, e.BOut)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to project attention output: %w", err)
	}

	attResult, err := e.residualNorm(e.NormAtt, x, projected)
	if err != nil {
		return nil, nil, fmt.Errorf("failed attention residual: %w", err)
	}

	hidden, err := linear(attResult, e.WFF1, e.BFF1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed first feed-forward projection: %w", err)
	}
	ffOut, err := linear(hidden.ReLU(), e.WFF2, e.BFF2)
	if err != nil {
		return nil, nil, fmt.Errorf("failed second feed-forward projection: %w", err)
	}

	out, err := e.residualNorm(e.NormFF, attResult, ffOut)
	if err != nil {
		return nil, nil, fmt.Errorf("failed feed-forward residual: %w", err)
	}

	return out, weights, nil
}

// Forward runs the layer, discarding the attention weights.
func (e *EncoderLayer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, _, err := e.ForwardWithWeights(x)
	return out, err
}

// residualNorm combines a residual branch with a sub-layer output as
// norm(residual*alpha + dropout(branch)).
func (e *EncoderLayer) residualNorm(norm *LayerNorm, residual, branch *tensor.Tensor) (*tensor.Tensor, error) {
	combined, err := tensor.Add(residual.Scale(e.Alpha), branch.Dropout(e.Dropout, e.Training))
	if err != nil {
		return nil, err
	}
	return norm.Forward(combined)
}

// Parameters returns all weights, biases and norm parameters.
func (e *EncoderLayer) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{
		e.WQKV, e.BQKV,
		e.WOut, e.BOut,
		e.WFF1, e.BFF1,
		e.WFF2, e.BFF2,
	}
	params = append(params, e.NormAtt.Parameters()...)
	params = append(params, e.NormFF.Parameters()...)
	return params
}

// linear applies a sequence-form projection x @ w + b.
func linear(x, w, b *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := tensor.Matmul(x, w)
	if err != nil {
		return nil, err
	}
	return tensor.Add(out, b)
}
