// Command detect runs the detection pipeline over an image or a directory of
// images and prints the resulting boxes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/util"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the YAML pipeline configuration")
		imagePath  = flag.String("image", "", "Path to a single image to detect on")
		dirPath    = flag.String("dir", "", "Directory of images to detect on")
		ortLibPath = flag.String("ort", "", "Path to the onnxruntime shared library (empty uses the bundled default)")
		confThresh = flag.Float64("conf", -1, "Override the confidence threshold")
		iouThresh  = flag.Float64("iou", -1, "Override the IoU threshold")
		verbose    = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	logger := initLogger(*verbose)

	if *configPath == "" {
		logger.Fatal("a -config file is required")
	}
	if *imagePath == "" && *dirPath == "" {
		logger.Fatal("either -image or -dir is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if *confThresh >= 0 {
		cfg.Filter.ConfidenceThreshold = float32(*confThresh)
	}
	if *iouThresh >= 0 {
		cfg.Filter.IoUThreshold = float32(*iouThresh)
	}
	if len(cfg.Model.Classes) == 0 {
		cfg.Model.Classes = models.COCOClasses
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	if err := inference.Initialize(*ortLibPath); err != nil {
		logger.WithError(err).Fatal("failed to initialize onnxruntime")
	}
	defer inference.Destroy()

	m, err := models.NewModel(cfg.Model)
	if err != nil {
		logger.WithError(err).Fatal("failed to create model")
	}
	m.SetLetterbox(cfg.LetterboxOptions())

	pool, err := inference.NewPool(cfg.Session, cfg.SessionPoolSize)
	if err != nil {
		logger.WithError(err).Fatal("failed to create session pool")
	}
	defer pool.Close()

	det := detector.New(m, pool, &cfg.Filter, logger)

	paths := []string{}
	if *imagePath != "" {
		paths = append(paths, *imagePath)
	}
	if *dirPath != "" {
		files, err := util.LoadDirectoryImageFiles(*dirPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to read image directory")
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	classes := cfg.Model.Classes
	exitCode := 0
	for _, path := range paths {
		if err := detectOne(det, path, classes); err != nil {
			logger.WithError(err).WithField("image", path).Error("detection failed")
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// detectOne decodes one image, runs the pipeline and prints its detections.
func detectOne(det *detector.Detector, path string, classes []string) error {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("failed to decode image %s", path)
	}
	defer mat.Close()

	img, err := mat.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert image %s: %w", path, err)
	}

	results, err := det.Detect(img)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d detections\n", path, len(results))
	for _, r := range results {
		label := fmt.Sprintf("class %d", r.Class)
		if r.Class >= 0 && r.Class < len(classes) {
			label = classes[r.Class]
		}
		fmt.Printf("  %-16s %.3f  (%.1f, %.1f)-(%.1f, %.1f)\n",
			label, r.Score, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
	}
	return nil
}

func initLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
