// Package dataset provides the MNIST data the classifier trains and
// evaluates on: fetching the canonical IDX files, decoding them, scaling
// pixels to [−1, 1], and splitting off a stratified validation set.
package dataset

import (
	"compress/gzip"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Set is a dataset slice: n flattened images paired with their digit labels.
type Set struct {
	X      *mat.Dense // [n, 784], pixel bytes scaled to [-1, 1]
	Labels []int      // [n], digits 0-9
}

// Len returns the number of examples in the set.
func (s *Set) Len() int {
	n, _ := s.X.Dims()
	return n
}

// Head returns a view of the first n examples. When n is zero, negative, or
// at least Len, the receiver itself is returned.
func (s *Set) Head(n int) *Set {
	if n <= 0 || n >= s.Len() {
		return s
	}
	_, cols := s.X.Dims()
	return &Set{X: s.X.Slice(0, n, 0, cols).(*mat.Dense), Labels: s.Labels[:n]}
}

// Load reads the MNIST training and test sets from dir.
//
// Expected files (gzipped copies with a .gz suffix are picked up
// transparently):
//   - train-images-idx3-ubyte, train-labels-idx1-ubyte
//   - t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte
//
// Pixels are scaled from [0, 255] to [−1, 1].
func Load(dir string) (train, test *Set, err error) {
	train, err = loadSet(dir, "train-images-idx3-ubyte", "train-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, fmt.Errorf("training set: %w", err)
	}
	test, err = loadSet(dir, "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte")
	if err != nil {
		return nil, nil, fmt.Errorf("test set: %w", err)
	}
	return train, test, nil
}

func loadSet(dir, imagesName, labelsName string) (*Set, error) {
	ir, err := openMaybeGzip(filepath.Join(dir, imagesName))
	if err != nil {
		return nil, err
	}
	defer ir.Close()
	pixels, count, rows, cols, err := readIDXImages(ir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagesName, err)
	}

	lr, err := openMaybeGzip(filepath.Join(dir, labelsName))
	if err != nil {
		return nil, err
	}
	defer lr.Close()
	labelBytes, err := readIDXLabels(lr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelsName, err)
	}

	if count != len(labelBytes) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", count, len(labelBytes))
	}

	dim := rows * cols
	data := make([]float64, count*dim)
	for i, p := range pixels {
		data[i] = float64(p)/255*2 - 1
	}
	labels := make([]int, len(labelBytes))
	for i, b := range labelBytes {
		labels[i] = int(b)
	}

	return &Set{X: mat.NewDense(count, dim, data), Labels: labels}, nil
}

// openMaybeGzip opens path, falling back to path+".gz" behind a gzip reader.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	f, err = os.Open(path + ".gz")
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path+".gz", err)
	}
	return &gzipReadCloser{Reader: zr, file: f}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// StratifiedSplit carves a validation set of valSize examples out of s,
// keeping the class proportions of s in both halves. Within each class the
// picks are shuffled by a generator seeded with seed, so the same seed always
// produces the same split. Both returned sets preserve the original example
// order.
//
// Per-class validation counts follow the largest-remainder rule: each class
// contributes ⌊valSize·count/n⌋ examples, and classes with the largest
// fractional parts round up until valSize is reached.
func StratifiedSplit(s *Set, valSize int, seed int64) (train, val *Set, err error) {
	n := s.Len()
	if valSize <= 0 || valSize >= n {
		return nil, nil, fmt.Errorf("validation size %d out of range (0, %d)", valSize, n)
	}

	byClass := make(map[int][]int)
	for i, label := range s.Labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	// Largest-remainder allocation of valSize across classes.
	type share struct {
		class int
		take  int
		frac  float64
	}
	shares := make([]share, len(classes))
	allocated := 0
	for i, c := range classes {
		exact := float64(valSize) * float64(len(byClass[c])) / float64(n)
		take := int(exact)
		shares[i] = share{class: c, take: take, frac: exact - float64(take)}
		allocated += take
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; allocated < valSize; i = (i + 1) % len(shares) {
		if shares[i].take < len(byClass[shares[i].class]) {
			shares[i].take++
			allocated++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	valIdx := make([]int, 0, valSize)
	trainIdx := make([]int, 0, n-valSize)
	sort.Slice(shares, func(i, j int) bool { return shares[i].class < shares[j].class })
	for _, sh := range shares {
		idx := append([]int(nil), byClass[sh.class]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		valIdx = append(valIdx, idx[:sh.take]...)
		trainIdx = append(trainIdx, idx[sh.take:]...)
	}
	sort.Ints(valIdx)
	sort.Ints(trainIdx)

	return subset(s, trainIdx), subset(s, valIdx), nil
}

// subset copies the rows of s selected by idx into a new Set.
func subset(s *Set, idx []int) *Set {
	_, cols := s.X.Dims()
	x := mat.NewDense(len(idx), cols, nil)
	labels := make([]int, len(idx))
	for i, j := range idx {
		x.SetRow(i, s.X.RawRowView(j))
		labels[i] = s.Labels[j]
	}
	return &Set{X: x, Labels: labels}
}
