package nn

import "gonum.org/v1/gonum/mat"

// AffineReLUCache pairs the two sub-caches of a fused affine→ReLU forward
// pass, in call order.
type AffineReLUCache struct {
	affine *AffineCache
	relu   *ReLUCache
}

// AffineReLUForward runs an affine transform followed by a ReLU as one unit:
// y = max(0, x·w + b).
//
// The returned cache bundles both sub-caches so AffineReLUBackward can unwind
// the composition in exact reverse order.
func AffineReLUForward(x, w *mat.Dense, b *mat.VecDense) (*mat.Dense, *AffineReLUCache, error) {
	pre, affineCache, err := AffineForward(x, w, b)
	if err != nil {
		return nil, nil, err
	}
	y, reluCache := ReLUForward(pre)
	return y, &AffineReLUCache{affine: affineCache, relu: reluCache}, nil
}

// AffineReLUBackward propagates dout through the fused layer: first through
// the rectification to recover the gradient at the pre-activation, then
// through the affine transform. The order mirrors the forward composition in
// reverse and is fixed.
func AffineReLUBackward(dout *mat.Dense, cache *AffineReLUCache) (dx, dw *mat.Dense, db *mat.VecDense, err error) {
	dpre, err := ReLUBackward(dout, cache.relu)
	if err != nil {
		return nil, nil, nil, err
	}
	return AffineBackward(dpre, cache.affine)
}
