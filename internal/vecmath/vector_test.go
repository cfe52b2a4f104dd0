package vecmath

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float32
		wantErr bool
	}{
		{
			name: "identical vectors",
			a:    []float32{0.5, -1.2, 3.0},
			b:    []float32{0.5, -1.2, 3.0},
			want: 1,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{-1, -2, -3},
			want: -1,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "zero vector yields zero",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0,
		},
		{
			name:    "dimension mismatch",
			a:       []float32{1, 2},
			b:       []float32{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "empty vectors",
			a:       []float32{},
			b:       []float32{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrDimensionMismatch) {
					t.Errorf("expected ErrDimensionMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.want) {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestParsePoolingStrategy(t *testing.T) {
	for _, valid := range []string{"mean", "max", "weighted"} {
		if _, err := ParsePoolingStrategy(valid); err != nil {
			t.Errorf("ParsePoolingStrategy(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParsePoolingStrategy("median"); err == nil {
		t.Error("ParsePoolingStrategy(\"median\") should fail")
	}
}

func TestPoolMean(t *testing.T) {
	vectors := [][]float32{{1, 2}, {3, 4}}
	got, err := Pool(PoolingMean, vectors, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[0], 2) || !almostEqual(got[1], 3) {
		t.Errorf("mean pooling = %v, want [2 3]", got)
	}
}

func TestPoolMax(t *testing.T) {
	vectors := [][]float32{{1, 5, -2}, {3, 0, -1}}
	got, err := Pool(PoolingMax, vectors, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{3, 5, -1}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("max pooling[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPoolWeighted(t *testing.T) {
	vectors := [][]float32{{1, 0}, {3, 2}}

	// Weight entirely on the second vector.
	got, err := Pool(PoolingWeighted, vectors, []float64{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[0], 3) || !almostEqual(got[1], 2) {
		t.Errorf("weighted pooling = %v, want [3 2]", got)
	}

	// Equal weights match the mean.
	got, err = Pool(PoolingWeighted, vectors, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[0], 2) || !almostEqual(got[1], 1) {
		t.Errorf("weighted pooling = %v, want [2 1]", got)
	}

	// All-zero weights degrade to the mean rather than failing.
	got, err = Pool(PoolingWeighted, vectors, []float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[0], 2) || !almostEqual(got[1], 1) {
		t.Errorf("zero-weight pooling = %v, want [2 1]", got)
	}
}

func TestPoolDimensionMismatch(t *testing.T) {
	vectors := [][]float32{{1, 2}, {1, 2, 3}}
	for _, strategy := range []PoolingStrategy{PoolingMean, PoolingMax, PoolingWeighted} {
		if _, err := Pool(strategy, vectors, []float64{0.5, 0.5}); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Pool(%s) with mismatched dims: expected ErrDimensionMismatch, got %v", strategy, err)
		}
	}
}

func TestPoolWeightCountMismatch(t *testing.T) {
	vectors := [][]float32{{1, 2}, {3, 4}}
	if _, err := Pool(PoolingWeighted, vectors, []float64{1}); err == nil {
		t.Error("expected error for weight count mismatch")
	}
}
