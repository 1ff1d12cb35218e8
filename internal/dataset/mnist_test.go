package dataset

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// encodeImages builds an IDX image payload for count rows×cols images whose
// pixel bytes are taken from pixels in order.
func encodeImages(t *testing.T, count, rows, cols int, pixels []byte) []byte {
	t.Helper()
	require.Len(t, pixels, count*rows*cols)

	var buf bytes.Buffer
	for _, v := range []uint32{imageMagic, uint32(count), uint32(rows), uint32(cols)} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	buf.Write(pixels)
	return buf.Bytes()
}

func encodeLabels(t *testing.T, labels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []uint32{labelMagic, uint32(len(labels))} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	buf.Write(labels)
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// writeMNISTDir lays out a complete fake MNIST directory with 2×2 images.
func writeMNISTDir(t *testing.T, dir string, gz bool) {
	t.Helper()

	trainPixels := []byte{
		0, 255, 51, 102, // image 0
		255, 255, 0, 0, // image 1
		10, 20, 30, 40, // image 2
	}
	trainImages := encodeImages(t, 3, 2, 2, trainPixels)
	trainLabels := encodeLabels(t, []byte{7, 0, 3})
	testImages := encodeImages(t, 2, 2, 2, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	testLabels := encodeLabels(t, []byte{9, 1})

	files := map[string][]byte{
		"train-images-idx3-ubyte": trainImages,
		"train-labels-idx1-ubyte": trainLabels,
		"t10k-images-idx3-ubyte":  testImages,
		"t10k-labels-idx1-ubyte":  testLabels,
	}
	for name, data := range files {
		if gz {
			writeFile(t, filepath.Join(dir, name+".gz"), gzipBytes(t, data))
		} else {
			writeFile(t, filepath.Join(dir, name), data)
		}
	}
}

func TestLoad_DecodesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	writeMNISTDir(t, dir, false)

	train, test, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, 3, train.Len())
	require.Equal(t, 2, test.Len())
	assert.Equal(t, []int{7, 0, 3}, train.Labels)
	assert.Equal(t, []int{9, 1}, test.Labels)

	_, cols := train.X.Dims()
	assert.Equal(t, 4, cols)

	// Byte 0 → −1, byte 255 → 1, byte 51 → 51/255·2−1 = −0.6.
	assert.InDelta(t, -1.0, train.X.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, train.X.At(0, 1), 1e-12)
	assert.InDelta(t, -0.6, train.X.At(0, 2), 1e-12)
	assert.InDelta(t, 102.0/255*2-1, train.X.At(0, 3), 1e-12)
}

func TestLoad_ReadsGzippedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMNISTDir(t, dir, true)

	train, test, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, []int{9, 1}, test.Labels)
}

func TestLoad_RejectsWrongMagic(t *testing.T) {
	dir := t.TempDir()
	writeMNISTDir(t, dir, false)
	// Swap the training images for a label-magic payload.
	writeFile(t, filepath.Join(dir, "train-images-idx3-ubyte"), encodeLabels(t, []byte{1}))

	_, _, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic number")
}

func TestLoad_RejectsCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeMNISTDir(t, dir, false)
	writeFile(t, filepath.Join(dir, "train-labels-idx1-ubyte"), encodeLabels(t, []byte{7, 0}))

	_, _, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image count")
}

func TestLoad_MissingFiles(t *testing.T) {
	_, _, err := Load(t.TempDir())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

// idSet builds a Set whose rows carry their own index, so split membership
// can be recovered from the matrix after the fact.
func idSet(labels []int) *Set {
	n := len(labels)
	x := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, float64(i))
	}
	return &Set{X: x, Labels: labels}
}

func rowIDs(s *Set) []int {
	ids := make([]int, s.Len())
	for i := range ids {
		ids[i] = int(s.X.At(i, 0))
	}
	return ids
}

func TestStratifiedSplit_BalancedClasses(t *testing.T) {
	labels := make([]int, 20)
	for i := range labels {
		labels[i] = i % 2
	}
	s := idSet(labels)

	train, val, err := StratifiedSplit(s, 4, 1)
	require.NoError(t, err)
	require.Equal(t, 16, train.Len())
	require.Equal(t, 4, val.Len())

	// Both halves keep the 50/50 class balance.
	countClass := func(set *Set, class int) int {
		n := 0
		for _, l := range set.Labels {
			if l == class {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 2, countClass(val, 0))
	assert.Equal(t, 2, countClass(val, 1))
	assert.Equal(t, 8, countClass(train, 0))
	assert.Equal(t, 8, countClass(train, 1))

	// Together the halves cover every example exactly once.
	seen := make(map[int]bool)
	for _, id := range append(rowIDs(train), rowIDs(val)...) {
		assert.False(t, seen[id], "example %d appears twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 20)

	// Labels still pair with their rows.
	for i, id := range rowIDs(val) {
		assert.Equal(t, labels[id], val.Labels[i])
	}
}

func TestStratifiedSplit_LargestRemainder(t *testing.T) {
	// 7 examples of class 0 and 3 of class 1; a validation share of 3
	// splits as 2.1 and 0.9, so class 1 wins the rounding seat.
	labels := []int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}
	_, val, err := StratifiedSplit(idSet(labels), 3, 5)
	require.NoError(t, err)

	counts := map[int]int{}
	for _, l := range val.Labels {
		counts[l]++
	}
	assert.Equal(t, map[int]int{0: 2, 1: 1}, counts)
}

func TestStratifiedSplit_SeedDeterminism(t *testing.T) {
	labels := make([]int, 30)
	for i := range labels {
		labels[i] = i % 3
	}
	s := idSet(labels)

	_, valA, err := StratifiedSplit(s, 6, 9)
	require.NoError(t, err)
	_, valB, err := StratifiedSplit(s, 6, 9)
	require.NoError(t, err)

	assert.Equal(t, rowIDs(valA), rowIDs(valB))
	assert.Equal(t, valA.Labels, valB.Labels)
}

func TestStratifiedSplit_RejectsBadSizes(t *testing.T) {
	s := idSet([]int{0, 1, 0, 1})

	_, _, err := StratifiedSplit(s, 0, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit(s, 4, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit(s, -2, 1)
	assert.Error(t, err)
}

func TestHead_TruncatesAndAliases(t *testing.T) {
	s := idSet([]int{0, 1, 0, 1})

	head := s.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, []int{0, 1}, head.Labels)

	// Out-of-range counts hand back the original set.
	assert.Same(t, s, s.Head(0))
	assert.Same(t, s, s.Head(-1))
	assert.Same(t, s, s.Head(4))
	assert.Same(t, s, s.Head(100))
}

func TestDownload_FetchesAndCaches(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("payload for " + r.URL.Path))
	}))
	defer server.Close()

	oldBase := BaseURL
	BaseURL = server.URL + "/"
	defer func() { BaseURL = oldBase }()

	dir := filepath.Join(t.TempDir(), "mnist")
	require.NoError(t, Download(context.Background(), dir))
	assert.Equal(t, int32(4), requests.Load())

	for _, name := range mnistFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "payload for /"+name, string(data))
	}

	// Everything is cached now; a second call downloads nothing.
	require.NoError(t, Download(context.Background(), dir))
	assert.Equal(t, int32(4), requests.Load())
}

func TestDownload_SkipsUncompressedCopies(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	oldBase := BaseURL
	BaseURL = server.URL + "/"
	defer func() { BaseURL = oldBase }()

	dir := t.TempDir()
	// A gunzipped train images file already on disk counts as cached.
	writeFile(t, filepath.Join(dir, "train-images-idx3-ubyte"), []byte("already here"))

	require.NoError(t, Download(context.Background(), dir))
	assert.Equal(t, int32(3), requests.Load())
	_, err := os.Stat(filepath.Join(dir, "train-images-idx3-ubyte.gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_ReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	oldBase := BaseURL
	BaseURL = server.URL + "/"
	defer func() { BaseURL = oldBase }()

	err := Download(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
