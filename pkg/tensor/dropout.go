package tensor

// Dropout zeroes each element independently with probability p and
// scales the survivors by 1/(1-p), so the expected activation is
// unchanged (inverted dropout). When training is false or p is 0 it
// returns an untouched copy; inference-only deployments never see
// randomness.
func (t *Tensor) Dropout(p float32, training bool) *Tensor {
	if !training || p == 0 {
		return t.Clone()
	}
	if p < 0 || p >= 1 {
		panic("dropout probability must be in [0, 1)")
	}

	out := New(t.Shape)
	scale := 1 / (1 - p)
	for i, v := range t.Data {
		if rng.Float32() >= p {
			out.Data[i] = v * scale
		}
	}
	return out
}
