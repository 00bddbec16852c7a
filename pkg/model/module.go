package model

import "github.com/andreaslam/kZero/pkg/tensor"

// Module is the capability shared by every trainable component: a
// forward transform and access to the parameters it owns. Parameters
// returns the live tensors; the external optimizer updates them in
// place between forward passes, and nothing in this package mutates
// them during a forward call.
type Module interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
}

var (
	_ Module = (*Conv1x1)(nil)
	_ Module = (*LayerNorm)(nil)
	_ Module = (*EncoderLayer)(nil)
	_ Module = (*AttentionTower)(nil)
)
