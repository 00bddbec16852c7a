package tensor

import (
	"math"
	"testing"
)

func sampleStd(data []float32) float64 {
	mean := 0.0
	for _, v := range data {
		mean += float64(v)
	}
	mean /= float64(len(data))

	variance := 0.0
	for _, v := range data {
		d := float64(v) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(data)))
}

func TestSetSeedDeterminism(t *testing.T) {
	a := New([]int{100})
	b := New([]int{100})

	SetSeed(7)
	FillNormal(a, 0, 1)
	SetSeed(7)
	FillNormal(b, 0, 1)

	if !a.Equals(b, 0) {
		t.Errorf("same seed produced different samples")
	}
}

func TestFillNormal(t *testing.T) {
	SetSeed(1)
	tt := New([]int{40000})
	FillNormal(tt, 2, 0.5)

	mean := 0.0
	for _, v := range tt.Data {
		mean += float64(v)
	}
	mean /= float64(len(tt.Data))
	if math.Abs(mean-2) > 0.05 {
		t.Errorf("sample mean %v too far from 2", mean)
	}
	if std := sampleStd(tt.Data); math.Abs(std-0.5) > 0.05 {
		t.Errorf("sample std %v too far from 0.5", std)
	}
}

func TestXavierNormalStd(t *testing.T) {
	SetSeed(2)
	tt := New([]int{200, 200})
	XavierNormal(tt, 1)

	// std = gain * sqrt(2 / (fanIn + fanOut)) = sqrt(2/400)
	want := math.Sqrt(2.0 / 400)
	if std := sampleStd(tt.Data); math.Abs(std-want) > want*0.1 {
		t.Errorf("sample std %v too far from %v", std, want)
	}

	// Gain scales the distribution linearly.
	SetSeed(2)
	half := New([]int{200, 200})
	XavierNormal(half, 0.5)
	for i := range tt.Data {
		if math.Abs(float64(tt.Data[i]/2-half.Data[i])) > 1e-6 {
			t.Fatalf("gain 0.5 sample %d is %v, want %v", i, half.Data[i], tt.Data[i]/2)
		}
	}
}

func TestXavierUniformBounds(t *testing.T) {
	SetSeed(3)
	tt := New([]int{50, 50})
	XavierUniform(tt, 1)

	limit := float32(math.Sqrt(6.0 / 100))
	for i, v := range tt.Data {
		if v < -limit || v > limit {
			t.Fatalf("element %d is %v, outside [-%v, %v]", i, v, limit, limit)
		}
	}
}

func TestXavierNormalCols(t *testing.T) {
	SetSeed(4)
	tt := New([]int{8, 12})
	XavierNormalCols(tt, 0, 4, 1)

	// Only the addressed column range is touched.
	touched := 0
	for r := 0; r < 8; r++ {
		for c := 0; c < 12; c++ {
			v := tt.Get([]int{r, c})
			if c < 4 {
				if v != 0 {
					touched++
				}
			} else if v != 0 {
				t.Fatalf("column %d outside the range was written: %v", c, v)
			}
		}
	}
	if touched == 0 {
		t.Errorf("column range was not initialized")
	}
}

func TestXavierNormalColsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for out-of-range columns")
		}
	}()
	XavierNormalCols(New([]int{4, 4}), 2, 6, 1)
}
