// Command mnist-mlp trains a two-layer fully-connected network on MNIST
// with hand-derived gradients and plain SGD, then reports test accuracy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/austinjstromme/AdvancedML-2024/internal/dataset"
	"github.com/austinjstromme/AdvancedML-2024/internal/nn"
	"github.com/austinjstromme/AdvancedML-2024/internal/optim"
	"github.com/austinjstromme/AdvancedML-2024/internal/report"
	"github.com/austinjstromme/AdvancedML-2024/internal/train"
)

func main() {
	dataDir := flag.String("data", "./data", "Directory containing the MNIST IDX files")
	download := flag.Bool("download", false, "Download missing MNIST files into the data directory first")
	epochs := flag.Int("epochs", train.DefaultEpochs, "Number of training epochs")
	batch := flag.Int("batch", train.DefaultBatchSize, "Mini-batch size")
	lr := flag.Float64("lr", optim.DefaultLR, "Learning rate for SGD")
	hidden := flag.Int("hidden", nn.DefaultHiddenDim, "Hidden layer width")
	seed := flag.Int64("seed", nn.DefaultSeed, "Seed for weight init, splitting, and shuffling")
	valSize := flag.Int("val", 5000, "Training examples held out for validation (0 = none)")
	testCap := flag.Int("test", 0, "Max test examples to evaluate (0 = all)")
	plotPath := flag.String("plot", "", "Write loss/accuracy curves next to this path (e.g. curves.png)")
	table := flag.Bool("table", false, "Print the full per-epoch metrics table after training")
	flag.Parse()

	if *download {
		fmt.Printf("Downloading MNIST into %s...\n", *dataDir)
		if err := dataset.Download(context.Background(), *dataDir); err != nil {
			log.Fatalf("download failed: %v", err)
		}
	}

	trainSet, testSet, err := dataset.Load(*dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "MNIST data not found in %s\n", *dataDir)
			fmt.Fprintln(os.Stderr, "Run with -download to fetch it, or place the four IDX files")
			fmt.Fprintln(os.Stderr, "(train-images-idx3-ubyte, train-labels-idx1-ubyte,")
			fmt.Fprintln(os.Stderr, " t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte, or their")
			fmt.Fprintln(os.Stderr, " .gz copies) in the data directory.")
			os.Exit(1)
		}
		log.Fatalf("failed to load MNIST: %v", err)
	}
	testSet = testSet.Head(*testCap)

	var valSet *dataset.Set
	if *valSize > 0 {
		trainSet, valSet, err = dataset.StratifiedSplit(trainSet, *valSize, *seed)
		if err != nil {
			log.Fatalf("failed to split off validation set: %v", err)
		}
	}
	valCount := 0
	if valSet != nil {
		valCount = valSet.Len()
	}

	fmt.Println("MNIST two-layer MLP")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Data:  train=%d val=%d test=%d\n", trainSet.Len(), valCount, testSet.Len())
	fmt.Printf("Model: %d -> %d -> %d, weight scale %g\n",
		nn.DefaultInputDim, *hidden, nn.DefaultNumClasses, nn.DefaultWeightScale)
	fmt.Printf("SGD:   lr=%g, batch=%d (%d batches/epoch), epochs=%d, seed=%d\n",
		*lr, *batch, train.NumBatches(trainSet.Len(), *batch), *epochs, *seed)
	fmt.Println(strings.Repeat("=", 60))

	model := nn.New(nn.Config{HiddenDim: *hidden, Seed: *seed})
	trainer := train.New(model, train.Config{
		Epochs:       *epochs,
		BatchSize:    *batch,
		LearningRate: *lr,
		Seed:         *seed,
		Progress:     os.Stdout,
	})

	var history []train.EpochMetrics
	if valSet != nil {
		history, err = trainer.Run(trainSet.X, trainSet.Labels, valSet.X, valSet.Labels)
	} else {
		history, err = trainer.Run(trainSet.X, trainSet.Labels, nil, nil)
	}
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	fmt.Println(strings.Repeat("=", 60))
	testLoss, testAcc, err := train.Evaluate(model, testSet.X, testSet.Labels, *batch)
	if err != nil {
		log.Fatalf("test evaluation failed: %v", err)
	}
	fmt.Printf("Test:  Loss=%.4f, Acc=%.2f%%\n", testLoss, testAcc*100)

	if *table {
		fmt.Println()
		if err := report.WriteHistory(os.Stdout, history); err != nil {
			log.Fatalf("failed to print metrics table: %v", err)
		}
	}
	if *plotPath != "" {
		written, err := report.SaveCurves(*plotPath, history)
		if err != nil {
			log.Fatalf("failed to save curves: %v", err)
		}
		fmt.Printf("Curves written to %s\n", strings.Join(written, " and "))
	}
}
