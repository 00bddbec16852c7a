package model

import (
	"testing"

	"github.com/andreaslam/kZero/pkg/tensor"
)

func TestConv1x1KnownValues(t *testing.T) {
	conv := NewConv1x1(2, 1)
	conv.Weight.Set([]int{0, 0}, 1)
	conv.Weight.Set([]int{0, 1}, 2)
	conv.Bias.Data[0] = 0.5

	x, _ := tensor.FromSlice([]float32{
		1, 2, 3, 4, // channel 0
		10, 20, 30, 40, // channel 1
	}, []int{1, 2, 2, 2})

	out, err := conv.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	wantShape := []int{1, 1, 2, 2}
	for i, dim := range wantShape {
		if out.Shape[i] != dim {
			t.Fatalf("output shape %v, want %v", out.Shape, wantShape)
		}
	}

	want := []float32{21.5, 42.5, 63.5, 84.5}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("element %d is %v, want %v", i, out.Data[i], v)
		}
	}
}

func TestConv1x1Validation(t *testing.T) {
	conv := NewConv1x1(2, 4)

	if _, err := conv.Forward(tensor.New([]int{1, 3, 2, 2})); err == nil {
		t.Errorf("expected channel mismatch error")
	}
	if _, err := conv.Forward(tensor.New([]int{2, 2, 2})); err == nil {
		t.Errorf("expected rank error")
	}
}

func TestConv1x1Parameters(t *testing.T) {
	conv := NewConv1x1(3, 5)
	params := conv.Parameters()
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	if params[0].Shape[0] != 5 || params[0].Shape[1] != 3 {
		t.Errorf("weight shape %v, want [5 3]", params[0].Shape)
	}
	if params[1].Shape[0] != 5 {
		t.Errorf("bias shape %v, want [5]", params[1].Shape)
	}
}
