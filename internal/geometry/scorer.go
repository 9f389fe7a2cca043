package geometry

import (
	"math"

	"github.com/ctessum/polyclip-go"

	"github.com/eduforge/gradex/internal/models"
)

// Config holds the tunables for region annotation scoring.
// Weights are expected to sum to 1.
type Config struct {
	IoUWeight            float64
	RecallWeight         float64
	PrecisionWeight      float64
	IoUThreshold         float64
	AllowPartial         bool
	InclusionThreshold   float64
	MinCoverageThreshold float64
	LoyaltyFactor        float64
}

// DefaultConfig returns the standard scoring configuration
func DefaultConfig() Config {
	return Config{
		IoUWeight:            0.5,
		RecallWeight:         0.3,
		PrecisionWeight:      0.2,
		IoUThreshold:         0.5,
		AllowPartial:         false,
		InclusionThreshold:   0.8,
		MinCoverageThreshold: 0.05,
		LoyaltyFactor:        2.0,
	}
}

// Result is the outcome of scoring one student annotation set
type Result struct {
	IoU        float64   `json:"iou"` // average per-match accuracy
	Recall     float64   `json:"recall"`
	Precision  float64   `json:"precision"`
	TotalScore float64   `json:"totalScore"`
	MatchIoUs  []float64 `json:"iouScoresPerMatch"`
}

type shape struct {
	contour polyclip.Contour
	area    float64
}

// Score matches student annotations against the reference set and computes
// the weighted region score. An empty reference set or an empty post-filter
// student set yields an all-zero result.
func Score(student, reference []models.Region, cfg Config) Result {
	refs := normalize(reference)
	if len(refs) == 0 {
		return Result{MatchIoUs: []float64{}}
	}

	students := dedupe(normalize(student))
	if len(students) == 0 {
		return Result{MatchIoUs: []float64{}}
	}

	// Greedy first-come matching: each student shape takes the unmatched
	// reference with the highest IoU, if any overlap exists at all.
	type match struct {
		iou       float64
		inclusion float64
		coverage  float64
	}
	matched := make([]bool, len(refs))
	matches := make([]match, 0, len(students))

	for _, s := range students {
		bestIdx := -1
		bestIoU := 0.0
		bestInter := 0.0
		for i, r := range refs {
			if matched[i] {
				continue
			}
			inter := intersectionArea(s.contour, r.contour)
			v := iou(inter, s.area, r.area)
			if v > bestIoU {
				bestIoU = v
				bestIdx = i
				bestInter = inter
			}
		}
		if bestIdx < 0 || bestIoU <= 0 {
			continue
		}
		matched[bestIdx] = true
		matches = append(matches, match{
			iou:       bestIoU,
			inclusion: bestInter / s.area,
			coverage:  bestInter / refs[bestIdx].area,
		})
	}

	trueMatches := 0
	accuracySum := 0.0
	matchIoUs := make([]float64, 0, len(matches))

	for _, m := range matches {
		found := m.iou >= cfg.IoUThreshold
		if !found && cfg.AllowPartial {
			found = m.inclusion >= cfg.InclusionThreshold && m.coverage >= cfg.MinCoverageThreshold
		}

		accuracy := m.iou
		if found {
			trueMatches++
			if cfg.AllowPartial {
				accuracy = m.inclusion * math.Pow(m.coverage, 1/cfg.LoyaltyFactor)
			}
		}
		accuracySum += accuracy
		matchIoUs = append(matchIoUs, accuracy)
	}

	avgAccuracy := 0.0
	if len(matches) > 0 {
		avgAccuracy = accuracySum / float64(len(matches))
	}
	recall := float64(trueMatches) / float64(len(refs))
	precision := float64(trueMatches) / float64(len(students))

	total := 100 * (avgAccuracy*cfg.IoUWeight + recall*cfg.RecallWeight + precision*cfg.PrecisionWeight)
	total = math.Max(0, math.Min(100, total))

	return Result{
		IoU:        avgAccuracy,
		Recall:     recall,
		Precision:  precision,
		TotalScore: total,
		MatchIoUs:  matchIoUs,
	}
}

// normalize converts regions to contours, dropping degenerate or invalid ones
func normalize(regions []models.Region) []shape {
	shapes := make([]shape, 0, len(regions))
	for _, r := range regions {
		contour := toContour(r)
		if contour == nil {
			continue
		}
		area := contourArea(contour)
		if area <= minPolygonArea {
			continue
		}
		shapes = append(shapes, shape{contour: contour, area: area})
	}
	return shapes
}

// dedupe drops student shapes that near-exactly repeat an already accepted
// shape (pairwise IoU > 0.99), protecting precision from duplicate strokes.
func dedupe(shapes []shape) []shape {
	accepted := make([]shape, 0, len(shapes))
	for _, s := range shapes {
		duplicate := false
		for _, a := range accepted {
			inter := intersectionArea(s.contour, a.contour)
			if iou(inter, s.area, a.area) > 0.99 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, s)
		}
	}
	return accepted
}
