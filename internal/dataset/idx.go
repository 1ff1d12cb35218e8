package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IDX magic numbers, big-endian: 0x00000803 for image files, 0x00000801 for
// label files.
const (
	imageMagic = 2051
	labelMagic = 2049
)

// readIDXImages decodes an IDX image stream.
//
// Layout:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// The pixels are returned as one flat slice of count·rows·cols bytes in
// row-major image order.
func readIDXImages(r io.Reader) (pixels []byte, count, rows, cols int, err error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != imageMagic {
		return nil, 0, 0, 0, fmt.Errorf("invalid magic number: got %d, want %d", magic, imageMagic)
	}

	var dims [3]uint32
	for i := range dims {
		if err := binary.Read(r, binary.BigEndian, &dims[i]); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("failed to read header: %w", err)
		}
	}
	count, rows, cols = int(dims[0]), int(dims[1]), int(dims[2])
	if count == 0 || rows == 0 || cols == 0 {
		return nil, 0, 0, 0, fmt.Errorf("empty image file: %d images of %d×%d", count, rows, cols)
	}

	pixels = make([]byte, count*rows*cols)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to read pixel data: %w", err)
	}
	return pixels, count, rows, cols, nil
}

// readIDXLabels decodes an IDX label stream.
//
// Layout:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func readIDXLabels(r io.Reader) ([]byte, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != labelMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", magic, labelMagic)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	labels := make([]byte, count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}
