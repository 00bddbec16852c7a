package tensor

// ReLU applies the rectified linear unit element-wise, returning a new
// tensor: max(0, x).
func (t *Tensor) ReLU() *Tensor {
	out := New(t.Shape)
	for i, v := range t.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out
}

// ReLU is the standalone form of Tensor.ReLU.
func ReLU(t *Tensor) *Tensor {
	return t.ReLU()
}
