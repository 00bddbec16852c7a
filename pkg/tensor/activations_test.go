package tensor

import "testing"

func TestReLU(t *testing.T) {
	tt, _ := FromSlice([]float32{-2, -0.5, 0, 0.5, 3}, []int{5})

	out := tt.ReLU()
	want := []float32{0, 0, 0, 0.5, 3}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("element %d is %v, want %v", i, out.Data[i], v)
		}
	}

	// Input untouched.
	if tt.Data[0] != -2 {
		t.Errorf("ReLU mutated its input")
	}
}
