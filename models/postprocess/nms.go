package postprocess

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/nvr-ai/go-detect/images"
)

const (
	// maxNMSCandidates bounds the number of boxes entering suppression. When
	// exceeded, only the highest-scoring candidates are kept; the truncation
	// is deterministic (score-descending, original order on ties).
	maxNMSCandidates = 30000

	// maxBoxExtent exceeds any plausible box coordinate and serves as the
	// per-class offset for batched class-aware suppression: boxes shifted by
	// class*maxBoxExtent can never overlap across classes.
	maxBoxExtent = 4096

	// mergeCandidateLimit is the upper candidate count for merge refinement;
	// above it the weighted-mean pass costs more than it helps.
	mergeCandidateLimit = 3000
)

// Config defines parameters for the detection filter.
type Config struct {
	// ConfidenceThreshold gates anchors on objectness and fused scores. Must
	// lie in [0, 1].
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// IoUThreshold is the overlap above which a lower-scoring box is
	// suppressed. Must lie in [0, 1].
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAllowlist restricts output to the listed class indices; nil keeps
	// every class.
	ClassAllowlist []int `json:"class_allowlist" yaml:"class_allowlist"`
	// ClassAgnostic suppresses across classes instead of per class.
	ClassAgnostic bool `json:"class_agnostic" yaml:"class_agnostic"`
	// MultiLabel emits one candidate per (anchor, class) pair above the
	// threshold instead of only the best class. Forced off for single-class
	// models.
	MultiLabel bool `json:"multi_label" yaml:"multi_label"`
	// MaxDetections caps the per-image output length; 0 means 300.
	MaxDetections int `json:"max_detections" yaml:"max_detections"`
	// Merge replaces each surviving box with the score-weighted mean of the
	// candidates overlapping it beyond IoUThreshold.
	Merge bool `json:"merge" yaml:"merge"`
	// Redundant drops merged boxes supported by a single candidate. Only
	// meaningful when Merge is set.
	Redundant bool `json:"redundant" yaml:"redundant"`
	// NumWorkers bounds batch parallelism in FilterBatch; 0 means GOMAXPROCS.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`
	// Deadline is an optional wall-clock budget for a whole batch. When it
	// runs out, remaining images are left empty and the partial batch is
	// returned. Zero disables the budget.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`
}

// Validate rejects contract violations before any processing happens.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence threshold %g, valid values are between 0.0 and 1.0", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("invalid IoU threshold %g, valid values are between 0.0 and 1.0", c.IoUThreshold)
	}
	if c.MaxDetections < 0 {
		return fmt.Errorf("invalid max detections %d", c.MaxDetections)
	}
	return nil
}

// maxDetections resolves the configured cap, defaulting to 300.
func (c *Config) maxDetections() int {
	if c.MaxDetections == 0 {
		return 300
	}
	return c.MaxDetections
}

// candidate is one gated anchor (or anchor-class pair in multi-label mode)
// awaiting suppression. order preserves the pre-sort position so that equal
// scores resolve deterministically.
type candidate struct {
	box   images.Rect
	score float32
	class int
	order int
}

// Filter reduces one image's raw predictions to a short list of detections.
//
// Each row is (cx, cy, w, h, objectness, class scores...), box coordinates in
// pixel units. The pipeline gates on objectness, fuses objectness with class
// scores, converts boxes to corner form, selects labels (best class or
// multi-label), applies the class allowlist, truncates to the candidate
// ceiling, and runs greedy class-aware NMS with optional merge refinement.
//
// Arguments:
//   - rows: Per-anchor prediction rows of width 5+numClasses.
//   - numClasses: The class count declared by the model.
//   - cfg: Filter parameters; thresholds outside [0, 1] are rejected.
//
// Returns:
//   - []Result: Detections in NMS selection order; empty (never an error) when
//     nothing survives gating.
//   - error: A contract violation in the config or row layout.
func Filter(rows [][]float32, numClasses int, cfg *Config) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", numClasses)
	}
	return filterImage(rows, numClasses, cfg)
}

// FilterBatch filters every image of a batch independently.
//
// Images are distributed over a bounded worker pool; results come back in
// batch order. When cfg.Deadline expires, images not yet scheduled stay empty
// and the partial batch is returned without error.
//
// Arguments:
//   - batch: One prediction matrix per image.
//   - numClasses: The class count declared by the model.
//   - cfg: Filter parameters shared across the batch.
//
// Returns:
//   - [][]Result: Per-image detection lists, indexed like the input batch.
//   - error: The first contract violation encountered, if any.
func FilterBatch(batch [][][]float32, numClasses int, cfg *Config) ([][]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", numClasses)
	}

	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(batch) {
		workers = len(batch)
	}

	var start time.Time
	if cfg.Deadline > 0 {
		start = time.Now()
	}

	output := make([][]Result, len(batch))
	errs := make([]error, len(batch))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				output[i], errs[i] = filterImage(batch[i], numClasses, cfg)
			}
		}()
	}

	for i := range batch {
		if cfg.Deadline > 0 && time.Since(start) > cfg.Deadline {
			break
		}
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return output, nil
}

// filterImage runs the per-image pipeline. The config is assumed validated.
func filterImage(rows [][]float32, numClasses int, cfg *Config) ([]Result, error) {
	rowWidth := 5 + numClasses
	multiLabel := cfg.MultiLabel && numClasses > 1

	var allow map[int]struct{}
	if cfg.ClassAllowlist != nil {
		allow = make(map[int]struct{}, len(cfg.ClassAllowlist))
		for _, c := range cfg.ClassAllowlist {
			allow[c] = struct{}{}
		}
	}

	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		if len(row) != rowWidth {
			return nil, fmt.Errorf("prediction row has %d values, expected %d (5+%d classes)", len(row), rowWidth, numClasses)
		}

		obj := row[4]
		if obj <= cfg.ConfidenceThreshold {
			continue
		}

		box := images.CenterBox{Cx: row[0], Cy: row[1], W: row[2], H: row[3]}.Corner()

		if multiLabel {
			for c := 0; c < numClasses; c++ {
				score := obj * row[5+c]
				if score <= cfg.ConfidenceThreshold {
					continue
				}
				if allow != nil {
					if _, ok := allow[c]; !ok {
						continue
					}
				}
				candidates = append(candidates, candidate{box: box, score: score, class: c, order: len(candidates)})
			}
			continue
		}

		best := 0
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			if s := row[5+c]; s > bestScore {
				bestScore = s
				best = c
			}
		}
		score := obj * bestScore
		if score <= cfg.ConfidenceThreshold {
			continue
		}
		if allow != nil {
			if _, ok := allow[best]; !ok {
				continue
			}
		}
		candidates = append(candidates, candidate{box: box, score: score, class: best, order: len(candidates)})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sortByScore(candidates)
	if len(candidates) > maxNMSCandidates {
		candidates = candidates[:maxNMSCandidates]
	}

	return suppress(candidates, cfg), nil
}

// sortByScore orders candidates score-descending, falling back to the
// original candidate order on ties so the output is reproducible.
func sortByScore(c []candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].score != c[j].score {
			return c[i].score > c[j].score
		}
		return c[i].order < c[j].order
	})
}

// suppress runs greedy NMS over score-sorted candidates, with the class-offset
// trick for per-class suppression and optional merge refinement.
func suppress(candidates []candidate, cfg *Config) []Result {
	n := len(candidates)

	// Shifted copies keep boxes of different classes disjoint so one flat
	// pass suppresses per class. The originals stay untouched for output.
	shifted := make([]images.Rect, n)
	for i, c := range candidates {
		if cfg.ClassAgnostic {
			shifted[i] = c.box
		} else {
			off := float32(c.class) * maxBoxExtent
			shifted[i] = c.box.Offset(off, off)
		}
	}

	maxDet := cfg.maxDetections()
	alive := make([]bool, n)
	for i := range alive {
		alive[i] = true
	}

	selected := make([]int, 0, maxDet)
	for i := 0; i < n && len(selected) < maxDet; i++ {
		if !alive[i] {
			continue
		}
		selected = append(selected, i)
		alive[i] = false
		for j := i + 1; j < n; j++ {
			if !alive[j] {
				continue
			}
			if images.CalculateIoU(shifted[i], shifted[j]) > cfg.IoUThreshold {
				alive[j] = false
			}
		}
	}

	if cfg.Merge && n > 1 && n < mergeCandidateLimit {
		return mergeSelected(candidates, shifted, selected, cfg)
	}

	results := make([]Result, len(selected))
	for k, i := range selected {
		results[k] = Result{Box: candidates[i].box, Score: candidates[i].score, Class: candidates[i].class}
	}
	return results
}

// mergeSelected replaces each surviving box with the score-weighted mean of
// every candidate overlapping it beyond the IoU threshold. Overlap is decided
// on the class-shifted boxes, so only same-class candidates contribute (unless
// suppression was class-agnostic). With Redundant set, survivors backed by a
// single candidate are discarded.
func mergeSelected(candidates []candidate, shifted []images.Rect, selected []int, cfg *Config) []Result {
	results := make([]Result, 0, len(selected))
	for _, i := range selected {
		var sumW, x1, y1, x2, y2 float32
		contributors := 0
		for j := range candidates {
			if images.CalculateIoU(shifted[i], shifted[j]) <= cfg.IoUThreshold {
				continue
			}
			w := candidates[j].score
			sumW += w
			x1 += w * candidates[j].box.X1
			y1 += w * candidates[j].box.Y1
			x2 += w * candidates[j].box.X2
			y2 += w * candidates[j].box.Y2
			contributors++
		}
		if cfg.Redundant && contributors <= 1 {
			continue
		}
		box := candidates[i].box
		if sumW > 0 {
			box = images.Rect{X1: x1 / sumW, Y1: y1 / sumW, X2: x2 / sumW, Y2: y2 / sumW}
		}
		results = append(results, Result{Box: box, Score: candidates[i].score, Class: candidates[i].class})
	}
	return results
}
