package vecmath

import "fmt"

// PoolingStrategy selects how multiple segment vectors collapse into one
// chunk vector. The set is closed: new strategies are added by extending
// the constant list and the dispatch table below.
type PoolingStrategy string

const (
	// PoolingMean averages the vectors with equal weight.
	PoolingMean PoolingStrategy = "mean"
	// PoolingMax takes the element-wise maximum across the vectors.
	PoolingMax PoolingStrategy = "max"
	// PoolingWeighted averages the vectors weighted by caller-supplied
	// proportions (typically each segment's overlap with the chunk span).
	PoolingWeighted PoolingStrategy = "weighted"
)

type poolFunc func(vectors [][]float32, weights []float64) ([]float32, error)

var poolTable = map[PoolingStrategy]poolFunc{
	PoolingMean:     poolMean,
	PoolingMax:      poolMax,
	PoolingWeighted: poolWeighted,
}

// ParsePoolingStrategy validates a strategy name from configuration.
func ParsePoolingStrategy(s string) (PoolingStrategy, error) {
	strategy := PoolingStrategy(s)
	if _, ok := poolTable[strategy]; !ok {
		return "", fmt.Errorf("unknown pooling strategy %q (want mean, max or weighted)", s)
	}
	return strategy, nil
}

// Pool collapses the given vectors into one using the selected strategy.
// Weights are only consulted by the weighted strategy; they must align with
// vectors when provided. All vectors must share the same dimension.
func Pool(strategy PoolingStrategy, vectors [][]float32, weights []float64) ([]float32, error) {
	fn, ok := poolTable[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown pooling strategy %q", strategy)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to pool")
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	return fn(vectors, weights)
}

func poolMean(vectors [][]float32, _ []float64) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to pool")
	}
	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v), dim)
		}
		for i, x := range v {
			out[i] += float64(x)
		}
	}
	result := make([]float32, dim)
	n := float64(len(vectors))
	for i, x := range out {
		result[i] = float32(x / n)
	}
	return result, nil
}

func poolMax(vectors [][]float32, _ []float64) ([]float32, error) {
	dim := len(vectors[0])
	result := make([]float32, dim)
	copy(result, vectors[0])
	for _, v := range vectors[1:] {
		for i, x := range v {
			if x > result[i] {
				result[i] = x
			}
		}
	}
	return result, nil
}

func poolWeighted(vectors [][]float32, weights []float64) ([]float32, error) {
	if len(weights) != len(vectors) {
		return nil, fmt.Errorf("weight count %d does not match vector count %d", len(weights), len(vectors))
	}

	var total float64
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative pooling weight %f", w)
		}
		total += w
	}
	// All-zero weights degrade to an unweighted mean.
	if total == 0 {
		return poolMean(vectors, nil)
	}

	dim := len(vectors[0])
	out := make([]float64, dim)
	for vi, v := range vectors {
		w := weights[vi] / total
		for i, x := range v {
			out[i] += float64(x) * w
		}
	}
	result := make([]float32, dim)
	for i, x := range out {
		result[i] = float32(x)
	}
	return result, nil
}
