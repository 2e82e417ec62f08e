package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/born-ml/minikeras/datasets"
	"github.com/born-ml/minikeras/models"
	"github.com/born-ml/minikeras/nn"
	"github.com/born-ml/minikeras/optim"
	"github.com/born-ml/minikeras/tensor"
	"github.com/pkg/errors"
)

// trainOptions mirrors the train subcommand flags.
type trainOptions struct {
	dataDir   string
	download  bool
	arch      string
	epochs    int
	batchSize int
	lr        float64
	optimizer string
	l2        float64
	seed      int64
	limit     int
	workers   int
	save      string
	load      string
}

func parseTrainFlags(args []string) (trainOptions, error) {
	var o trainOptions
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&o.dataDir, "data", "", "Directory containing MNIST IDX files (plain or .gz)")
	fs.BoolVar(&o.download, "download", false, "Download MNIST into ~/.minikeras/datasets when -data is empty")
	fs.StringVar(&o.arch, "model", "cnn", "Architecture: cnn or mlp")
	fs.IntVar(&o.epochs, "epochs", 30, "Number of training epochs")
	fs.IntVar(&o.batchSize, "batch", 256, "Mini-batch size")
	fs.Float64Var(&o.lr, "lr", 0.001, "Learning rate")
	fs.StringVar(&o.optimizer, "optimizer", "adam", "Optimizer: adam, rmsprop or gd")
	fs.Float64Var(&o.l2, "l2", 0, "L2 weight decay (0 disables)")
	fs.Int64Var(&o.seed, "seed", 1, "Random seed for initialization and shuffling")
	fs.IntVar(&o.limit, "limit", 0, "Use only the first N training and test examples (0 = all)")
	fs.IntVar(&o.workers, "workers", runtime.NumCPU(), "Goroutines per convolution layer (1 = sequential)")
	fs.StringVar(&o.load, "load", "", "Initialize from a .mkw weights file before training")
	fs.StringVar(&o.save, "save", "", "Write the trained weights to this .mkw file")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.dataDir == "" && !o.download {
		return o, errors.New("either -data or -download is required")
	}
	return o, nil
}

// optimizerBuilder maps an optimizer flag value to its builder.
func optimizerBuilder(name string) (optim.Builder, error) {
	switch strings.ToLower(name) {
	case "adam":
		return optim.AdamBuilder(optim.AdamConfig{}), nil
	case "rmsprop":
		return optim.RMSPropBuilder(optim.RMSPropConfig{}), nil
	case "gd", "sgd", "gradient_descent":
		return optim.GradientDescentBuilder(), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", name)
	}
}

// architecture returns the layers of a 10-class MNIST classifier.
func architecture(name string, workers int) ([]nn.Layer, error) {
	switch name {
	case "cnn":
		return []nn.Layer{
			nn.NewConv2D(5, 1, 32, nn.Valid, nn.ReLU).SetWorkers(workers),
			nn.NewPool(2, 2, nn.MaxPool),
			nn.NewFlatten(),
			nn.NewDense(64, nn.ReLU),
			nn.NewDense(10, nn.Softmax),
		}, nil
	case "mlp":
		return []nn.Layer{
			nn.NewFlatten(),
			nn.NewDense(128, nn.ReLU),
			nn.NewDense(10, nn.Softmax),
		}, nil
	default:
		return nil, errors.Errorf("unknown model %q", name)
	}
}

func train(args []string, logger *slog.Logger) error {
	o, err := parseTrainFlags(args)
	if err != nil {
		return err
	}

	dir := o.dataDir
	if dir == "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		logger.Info("downloading MNIST", "url", datasets.MNISTBaseURL)
		if dir, err = datasets.DownloadMNIST(ctx, "datasets"); err != nil {
			return err
		}
	}

	trainSet, testSet, err := datasets.LoadMNIST(dir)
	if err != nil {
		return err
	}
	trainSet, testSet = trainSet.Head(o.limit), testSet.Head(o.limit)
	logger.Info("loaded MNIST", "dir", dir, "train", trainSet.Len(), "test", testSet.Len())

	yTrain, err := datasets.OneHot(trainSet.Y, 10)
	if err != nil {
		return err
	}
	yTest, err := datasets.OneHot(testSet.Y, 10)
	if err != nil {
		return err
	}

	layers, err := architecture(o.arch, o.workers)
	if err != nil {
		return err
	}
	builder, err := optimizerBuilder(o.optimizer)
	if err != nil {
		return err
	}

	m, err := models.NewSequential(models.Config{
		InputShape: tensor.Shape{28, 28, 1},
		Layers:     layers,
		Loss:       nn.SoftmaxCrossEntropy{},
		Optimizer:  builder,
		L2Lambda:   o.l2,
		Seed:       o.seed,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	logger.Info("model built", "optimizer", o.optimizer, "params", m.NumParams())
	logger.Debug(m.Summary())

	if o.load != "" {
		if err := m.LoadWeights(o.load); err != nil {
			return err
		}
	}

	_, err = m.Fit(trainSet.X, yTrain, models.FitConfig{
		MiniBatchSize: o.batchSize,
		LearningRate:  o.lr,
		Epochs:        o.epochs,
		Validation:    &models.Dataset{X: testSet.X, Y: yTest},
	})
	if err != nil {
		return err
	}

	cost, acc, err := m.Evaluate(testSet.X, yTest)
	if err != nil {
		return err
	}
	logger.Info("training complete", "test_cost", cost, "test_accuracy", acc)

	if o.save != "" {
		return m.SaveWeights(o.save)
	}
	return nil
}
