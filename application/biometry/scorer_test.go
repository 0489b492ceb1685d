package biometry

import (
	"math"
	"testing"
)

func TestCosineScorer(t *testing.T) {
	scorer := &CosineScorer{}

	tests := []struct {
		name    string
		a       []float64
		b       []float64
		want    float64
		wantErr bool
	}{
		{
			name: "identical vectors score 1",
			a:    []float64{0.5, -0.2, 0.8, 0.1},
			b:    []float64{0.5, -0.2, 0.8, 0.1},
			want: 1,
		},
		{
			name: "orthogonal vectors score 0",
			a:    []float64{1, 0},
			b:    []float64{0, 1},
			want: 0,
		},
		{
			name: "opposite vectors clamp to 0",
			a:    []float64{1, 0},
			b:    []float64{-1, 0},
			want: 0,
		},
		{
			name:    "empty vectors rejected",
			a:       []float64{},
			b:       []float64{1},
			wantErr: true,
		},
		{
			name:    "length mismatch rejected",
			a:       []float64{1, 2},
			b:       []float64{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "zero vector rejected",
			a:       []float64{0, 0},
			b:       []float64{1, 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scorer.Score(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got none")
				}
				if !IsValidationError(err) {
					t.Fatalf("expected a validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineScorerSymmetryAndDeterminism(t *testing.T) {
	scorer := &CosineScorer{}
	a := []float64{0.3, 0.7, -0.1, 0.4, 0.9}
	b := []float64{0.2, 0.6, 0.3, -0.5, 0.1}

	ab, err := scorer.Score(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, _ := scorer.Score(b, a)
	if ab != ba {
		t.Errorf("score is not symmetric: %v vs %v", ab, ba)
	}

	again, _ := scorer.Score(a, b)
	if ab != again {
		t.Errorf("score is not deterministic: %v vs %v", ab, again)
	}
	if ab < 0 || ab > 1 {
		t.Errorf("score out of range: %v", ab)
	}
}

func TestCosineScorerAllowDissimilarity(t *testing.T) {
	scorer := &CosineScorer{AllowDissimilarity: true}

	got, err := scorer.Score([]float64{1, 0}, []float64{-1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-0) > 1e-9 {
		t.Errorf("opposite vectors should map to 0, got %v", got)
	}

	got, _ = scorer.Score([]float64{1, 0}, []float64{0, 1})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("orthogonal vectors should map to 0.5, got %v", got)
	}
}

func TestDescriptorQuality(t *testing.T) {
	if got := DescriptorQuality(nil); got != 0 {
		t.Errorf("empty descriptor quality = %v, want 0", got)
	}

	flat := make([]float64, 128)
	for i := range flat {
		flat[i] = 0.5
	}
	flatQuality := DescriptorQuality(flat)

	varied := make([]float64, 128)
	for i := range varied {
		varied[i] = math.Sin(float64(i))
	}
	variedQuality := DescriptorQuality(varied)

	if variedQuality <= flatQuality {
		t.Errorf("varied descriptor should outscore a flat one: %v <= %v", variedQuality, flatQuality)
	}
	if variedQuality < 0 || variedQuality > 1 {
		t.Errorf("quality out of range: %v", variedQuality)
	}
}
