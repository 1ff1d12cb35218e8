package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AffineCache holds the inputs of an affine forward pass for the matching
// backward pass.
//
// A cache is produced by exactly one AffineForward call and consumed by
// exactly one AffineBackward call; it stores references, not copies, so the
// caller must not mutate x, w, or b between the two calls. Keeping the cache
// a distinct type per layer prevents pairing a backward pass with the wrong
// layer's forward pass at compile time.
type AffineCache struct {
	x *mat.Dense
	w *mat.Dense
	b *mat.VecDense

	// Output shape recorded at forward time, used to validate the
	// upstream gradient handed to AffineBackward.
	rows, cols int
}

// AffineForward computes the affine transform y = x·w + b.
//
// Shapes:
//   - x: [n, d] input batch (n examples, d features)
//   - w: [d, m] weight matrix
//   - b: [m] bias vector, broadcast across the n rows
//   - y: [n, m] output
//
// Returns the output and a cache for AffineBackward. The inputs are not
// modified. Fails with ErrShapeMismatch when the inner dimensions disagree.
func AffineForward(x, w *mat.Dense, b *mat.VecDense) (*mat.Dense, *AffineCache, error) {
	n, d := x.Dims()
	wr, m := w.Dims()
	if d != wr {
		return nil, nil, fmt.Errorf("affine forward: %w: x is %d×%d but w is %d×%d", ErrShapeMismatch, n, d, wr, m)
	}
	if b.Len() != m {
		return nil, nil, fmt.Errorf("affine forward: %w: w has %d columns but b has length %d", ErrShapeMismatch, m, b.Len())
	}

	var y mat.Dense
	y.Mul(x, w)
	y.Apply(func(_, j int, v float64) float64 { return v + b.AtVec(j) }, &y)

	return &y, &AffineCache{x: x, w: w, b: b, rows: n, cols: m}, nil
}

// AffineBackward computes the gradients of an affine transform given the
// upstream gradient dout with respect to its output.
//
// With y = x·w + b the chain rule gives
//
//	dx = dout·wᵀ   [n, d]
//	dw = xᵀ·dout   [d, m]
//	db = Σ_rows dout   [m]
//
// so the gradient with respect to each factor of the product is the upstream
// gradient multiplied by the transpose of the other factor, and the bias
// gradient sums over the broadcast dimension.
//
// Fails with ErrShapeMismatch when dout's shape differs from the forward
// output recorded in the cache.
func AffineBackward(dout *mat.Dense, cache *AffineCache) (dx, dw *mat.Dense, db *mat.VecDense, err error) {
	n, m := dout.Dims()
	if n != cache.rows || m != cache.cols {
		return nil, nil, nil, fmt.Errorf("affine backward: %w: dout is %d×%d but forward output was %d×%d",
			ErrShapeMismatch, n, m, cache.rows, cache.cols)
	}

	dx = &mat.Dense{}
	dx.Mul(dout, cache.w.T())

	dw = &mat.Dense{}
	dw.Mul(cache.x.T(), dout)

	db = mat.NewVecDense(m, nil)
	raw := dout.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		floats.Add(db.RawVector().Data, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols])
	}

	return dx, dw, db, nil
}
