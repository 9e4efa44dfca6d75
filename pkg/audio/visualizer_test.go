package audio

import (
	"math"
	"testing"
)

func TestVisualiserEmitsOnFullWindow(t *testing.T) {
	v := NewVisualiser()

	var emissions int
	emit := func(levels []float32) {
		emissions++
		if len(levels) != VisualiserBands {
			t.Fatalf("expected %d bands, got %d", VisualiserBands, len(levels))
		}
		for _, l := range levels {
			if l < 0 || l > 1 {
				t.Fatalf("level out of [0,1]: %f", l)
			}
		}
	}

	v.Push(make([]float32, VisualiserWindow-1), emit)
	if emissions != 0 {
		t.Fatalf("expected no emission before window fills, got %d", emissions)
	}

	v.Push([]float32{0}, emit)
	if emissions != 1 {
		t.Fatalf("expected exactly one emission once window fills, got %d", emissions)
	}
}

func TestVisualiserLouderSignalProducesHigherLevels(t *testing.T) {
	quiet := sineWave(1000, OutputRate, VisualiserWindow, 0.01)
	loud := sineWave(1000, OutputRate, VisualiserWindow, 0.9)

	vq := NewVisualiser()
	vl := NewVisualiser()

	var quietSum, loudSum float64
	vq.Push(quiet, func(levels []float32) {
		for _, l := range levels {
			quietSum += float64(l)
		}
	})
	vl.Push(loud, func(levels []float32) {
		for _, l := range levels {
			loudSum += float64(l)
		}
	})

	if loudSum <= quietSum {
		t.Fatalf("expected louder signal to produce higher total level: loud=%f quiet=%f", loudSum, quietSum)
	}
}

func TestVisualiserResetClearsBuffer(t *testing.T) {
	v := NewVisualiser()
	v.Push(make([]float32, VisualiserWindow/2), func([]float32) {
		t.Fatal("unexpected emission")
	})
	v.Reset()

	emitted := false
	v.Push(make([]float32, VisualiserWindow/2), func([]float32) {
		emitted = true
	})
	if emitted {
		t.Fatal("expected reset to drop the half-filled buffer")
	}
}

func sineWave(freq, rate, n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*float64(freq)*float64(i)/float64(rate)))
	}
	return out
}

func TestLogBandEdgesMonotonicAndInRange(t *testing.T) {
	edges := logBandEdges(VisualiserBands, VisualiserWindow, OutputRate, VisualiserFreqMin, VisualiserFreqMax)
	if len(edges) != VisualiserBands+1 {
		t.Fatalf("expected %d edges, got %d", VisualiserBands+1, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			t.Fatalf("expected strictly increasing edges, got %v", edges)
		}
	}
	if edges[len(edges)-1] > VisualiserWindow/2 {
		t.Fatalf("final edge %d exceeds half-spectrum bound %d", edges[len(edges)-1], VisualiserWindow/2)
	}
}

func TestHannWindowShape(t *testing.T) {
	w := hannWindow(8)
	if w[0] != 0 {
		t.Errorf("expected Hann window to start at 0, got %f", w[0])
	}
	mid := w[len(w)/2]
	if mid < 0.9 {
		t.Errorf("expected Hann window to peak near the middle, got %f at midpoint", mid)
	}
}
