package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BaseURL is the mirror the gzipped IDX files are fetched from. It is a
// variable so tests can point it at a local server.
var BaseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

var mnistFiles = []string{
	"train-images-idx3-ubyte.gz",
	"train-labels-idx1-ubyte.gz",
	"t10k-images-idx3-ubyte.gz",
	"t10k-labels-idx1-ubyte.gz",
}

// Download fetches the four MNIST files into dir, creating it if needed.
// Files already present in dir, gzipped or not, are left alone, so a second
// call is a no-op. A failed transfer never leaves a partial file behind.
func Download(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Minute}
	for _, name := range mnistFiles {
		if err := downloadFile(ctx, client, dir, name); err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
	}
	return nil
}

func downloadFile(ctx context.Context, client *http.Client, dir, name string) error {
	dest := filepath.Join(dir, name)
	for _, existing := range []string{dest, strings.TrimSuffix(dest, ".gz")} {
		if _, err := os.Stat(existing); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BaseURL+name, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
