package model

import (
	"math"
	"testing"

	"github.com/andreaslam/kZero/pkg/tensor"
)

func randomSequence(batch, seq, dModel int) *tensor.Tensor {
	x := tensor.New([]int{batch, seq, dModel})
	tensor.FillNormal(x, 0, 1)
	return x
}

func TestEncoderLayer_ShapePreserved(t *testing.T) {
	tensor.SetSeed(31)
	layer := NewEncoderLayer(validConfig())

	x := randomSequence(2, 9, 8)
	out, err := layer.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !out.ShapeEquals(x) {
		t.Errorf("output shape %v, want %v", out.Shape, x.Shape)
	}
	if !out.AllFinite() {
		t.Errorf("output contains non-finite values")
	}
}

func TestEncoderLayer_DeepNormConstants(t *testing.T) {
	layer := NewEncoderLayer(validConfig()) // depth 2

	if got := float64(layer.Alpha); math.Abs(got-math.Pow(4, 0.25)) > 1e-6 {
		t.Errorf("Alpha = %v, want 4^(1/4)", got)
	}
	if got := float64(layer.Beta); math.Abs(got-math.Pow(16, -0.25)) > 1e-6 {
		t.Errorf("Beta = %v, want 16^(-1/4)", got)
	}
}

func TestEncoderLayer_JointProjectionShape(t *testing.T) {
	cfg := validConfig()
	layer := NewEncoderLayer(cfg)

	// One buffer holds query, key and value widths in that order.
	wantCols := cfg.Heads * (2*cfg.DKey + cfg.DValue)
	if layer.WQKV.Shape[0] != cfg.DModel || layer.WQKV.Shape[1] != wantCols {
		t.Errorf("joint projection shape %v, want [%d %d]", layer.WQKV.Shape, cfg.DModel, wantCols)
	}
}

func TestEncoderLayer_ForwardWithWeights(t *testing.T) {
	tensor.SetSeed(32)
	cfg := validConfig()
	layer := NewEncoderLayer(cfg)

	batch, seq := 2, cfg.SeqLen()
	out, weights, err := layer.ForwardWithWeights(randomSequence(batch, seq, cfg.DModel))
	if err != nil {
		t.Fatalf("ForwardWithWeights failed: %v", err)
	}
	if out.Shape[0] != batch || out.Shape[1] != seq || out.Shape[2] != cfg.DModel {
		t.Errorf("output shape %v", out.Shape)
	}

	wantWeights := []int{batch * cfg.Heads, seq, seq}
	for i, dim := range wantWeights {
		if weights.Shape[i] != dim {
			t.Fatalf("weights shape %v, want %v", weights.Shape, wantWeights)
		}
	}

	for r := 0; r < wantWeights[0]*wantWeights[1]; r++ {
		sum := float32(0)
		for c := 0; c < seq; c++ {
			sum += weights.Data[r*seq+c]
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("attention row %d sums to %v, want 1", r, sum)
		}
	}
}

// DKey and DValue are independently configurable; the layer must not
// clamp one to the other.
func TestEncoderLayer_IndependentKeyValueWidths(t *testing.T) {
	tensor.SetSeed(33)
	cfg := validConfig()
	cfg.DKey = 3
	cfg.DValue = 5

	layer := NewEncoderLayer(cfg)
	wantCols := cfg.Heads * (2*3 + 5)
	if layer.WQKV.Shape[1] != wantCols {
		t.Fatalf("joint projection has %d columns, want %d", layer.WQKV.Shape[1], wantCols)
	}
	if layer.WOut.Shape[0] != cfg.Heads*5 {
		t.Fatalf("output projection expects %d channels, want %d", layer.WOut.Shape[0], cfg.Heads*5)
	}

	out, err := layer.Forward(randomSequence(1, cfg.SeqLen(), cfg.DModel))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if out.Shape[2] != cfg.DModel {
		t.Errorf("output width %d, want %d", out.Shape[2], cfg.DModel)
	}
}

func TestEncoderLayer_EvalDeterministic(t *testing.T) {
	tensor.SetSeed(34)
	cfg := validConfig()
	cfg.Dropout = 0.5

	layer := NewEncoderLayer(cfg)
	layer.Training = false

	x := randomSequence(1, cfg.SeqLen(), cfg.DModel)
	first, err := layer.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	second, err := layer.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if !first.Equals(second, 0) {
		t.Errorf("eval-mode forwards differ; dropout must degrade to identity")
	}
}

func TestEncoderLayer_InputValidation(t *testing.T) {
	layer := NewEncoderLayer(validConfig())

	if _, err := layer.Forward(tensor.New([]int{2, 9, 4})); err == nil {
		t.Errorf("expected channel width error")
	}
	if _, err := layer.Forward(tensor.New([]int{9, 8})); err == nil {
		t.Errorf("expected rank error")
	}
}

func TestEncoderLayer_Parameters(t *testing.T) {
	layer := NewEncoderLayer(validConfig())

	// 8 projection tensors plus scale/shift of both norms.
	if got := len(layer.Parameters()); got != 12 {
		t.Errorf("expected 12 parameter tensors, got %d", got)
	}
}

func BenchmarkEncoderLayerForward(b *testing.B) {
	tensor.SetSeed(35)
	cfg := Config{
		BoardSize:     9,
		InputChannels: 8,
		Depth:         4,
		DModel:        64,
		Heads:         4,
		DKey:          16,
		DValue:        16,
		DFF:           128,
	}
	layer := NewEncoderLayer(cfg)
	x := randomSequence(1, cfg.SeqLen(), cfg.DModel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := layer.Forward(x); err != nil {
			b.Fatal(err)
		}
	}
}
