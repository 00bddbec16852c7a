package tensor

import (
	"math"
	"math/rand"
	"time"
)

// rng drives dropout and all random initializers. Seed it with SetSeed
// for deterministic tests.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// SetSeed reseeds the package random source.
func SetSeed(seed int64) {
	rng = rand.New(rand.NewSource(seed))
}

// FillNormal fills t with samples from N(mean, std^2).
func FillNormal(t *Tensor, mean, std float32) {
	for i := range t.Data {
		t.Data[i] = mean + float32(rng.NormFloat64())*std
	}
}

// XavierNormal fills a 2D weight with Xavier/Glorot normal values:
// N(0, std^2) with std = gain * sqrt(2 / (fanIn + fanOut)), where fanIn
// and fanOut are the weight's two dimensions.
func XavierNormal(t *Tensor, gain float64) {
	fanIn, fanOut := fans(t)
	std := gain * math.Sqrt(2/float64(fanIn+fanOut))
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64() * std)
	}
}

// XavierUniform fills a 2D weight with Xavier/Glorot uniform values:
// U[-limit, limit] with limit = gain * sqrt(6 / (fanIn + fanOut)).
func XavierUniform(t *Tensor, gain float64) {
	fanIn, fanOut := fans(t)
	limit := gain * math.Sqrt(6/float64(fanIn+fanOut))
	for i := range t.Data {
		t.Data[i] = float32(rng.Float64()*2*limit - limit)
	}
}

// XavierNormalCols applies Xavier normal initialization to the column
// range [start, end) of a 2D weight, treating the range as an
// independent projection with fanIn = rows and fanOut = end-start.
// Columns outside the range are left untouched. This is how the slices
// of a joint projection buffer receive different gains.
func XavierNormalCols(t *Tensor, start, end int, gain float64) {
	if len(t.Shape) != 2 {
		panic("XavierNormalCols requires a 2D weight")
	}
	rows, cols := t.Shape[0], t.Shape[1]
	if start < 0 || end > cols || start >= end {
		panic("XavierNormalCols column range out of bounds")
	}

	std := gain * math.Sqrt(2/float64(rows+(end-start)))
	for r := 0; r < rows; r++ {
		for c := start; c < end; c++ {
			t.Data[r*cols+c] = float32(rng.NormFloat64() * std)
		}
	}
}

func fans(t *Tensor) (fanIn, fanOut int) {
	if len(t.Shape) < 2 {
		panic("variance-scaling init requires at least a 2D weight")
	}
	return t.Shape[len(t.Shape)-2], t.Shape[len(t.Shape)-1]
}
