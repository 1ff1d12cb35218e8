// Package report renders training histories for humans: a fixed-width text
// table and loss/accuracy curve plots.
//
// The training loop itself emits plain scalars only; everything presentational
// lives here.
package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/austinjstromme/AdvancedML-2024/internal/train"
)

// WriteHistory writes the per-epoch metrics as a fixed-width table.
func WriteHistory(w io.Writer, history []train.EpochMetrics) error {
	if _, err := fmt.Fprintf(w, "%5s  %12s  %11s  %11s\n", "Epoch", "Loss", "Train Acc", "Val Acc"); err != nil {
		return err
	}
	for _, record := range history {
		_, err := fmt.Fprintf(w, "%5d  %12.6f  %10.2f%%  %10.2f%%\n",
			record.Epoch, record.Loss, record.TrainAcc*100, record.ValAcc*100)
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveCurves renders the history as two line plots, one for the loss and one
// for the accuracies, and returns the paths it wrote. For path
// "out/curves.png" the files are "out/curves-loss.png" and
// "out/curves-acc.png"; the extension picks the image format the way
// plot.Save does.
func SaveCurves(path string, history []train.EpochMetrics) ([]string, error) {
	if len(history) == 0 {
		return nil, errors.New("report: empty history")
	}

	loss := make(plotter.XYs, len(history))
	trainAcc := make(plotter.XYs, len(history))
	valAcc := make(plotter.XYs, len(history))
	for i, record := range history {
		x := float64(record.Epoch)
		loss[i] = plotter.XY{X: x, Y: record.Loss}
		trainAcc[i] = plotter.XY{X: x, Y: record.TrainAcc}
		valAcc[i] = plotter.XY{X: x, Y: record.ValAcc}
	}

	lossPath := derivedPath(path, "loss")
	lossPlot := plot.New()
	lossPlot.Title.Text = "Training Loss"
	lossPlot.X.Label.Text = "Epoch"
	lossPlot.Y.Label.Text = "MSE"
	if err := plotutil.AddLines(lossPlot, "train", loss); err != nil {
		return nil, fmt.Errorf("report: loss plot: %w", err)
	}
	if err := lossPlot.Save(6*vg.Inch, 4*vg.Inch, lossPath); err != nil {
		return nil, fmt.Errorf("report: loss plot: %w", err)
	}

	accPath := derivedPath(path, "acc")
	accPlot := plot.New()
	accPlot.Title.Text = "Classification Accuracy"
	accPlot.X.Label.Text = "Epoch"
	accPlot.Y.Label.Text = "Accuracy"
	accPlot.Y.Min, accPlot.Y.Max = 0, 1
	if err := plotutil.AddLines(accPlot, "train", trainAcc, "val", valAcc); err != nil {
		return nil, fmt.Errorf("report: accuracy plot: %w", err)
	}
	if err := accPlot.Save(6*vg.Inch, 4*vg.Inch, accPath); err != nil {
		return nil, fmt.Errorf("report: accuracy plot: %w", err)
	}
	return []string{lossPath, accPath}, nil
}

// derivedPath inserts a suffix before the extension: ("c.png", "loss") →
// "c-loss.png".
func derivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + suffix + ext
}
