package geometry

import (
	"math"
	"testing"

	"github.com/eduforge/gradex/internal/models"
)

func box(x, y, w, h float64) models.Region {
	return models.Region{Shape: "box", X: x, Y: y, Width: w, Height: h}
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestScoreIdenticalRegions(t *testing.T) {
	regions := []models.Region{box(0, 0, 10, 10), box(20, 20, 5, 5)}

	res := Score(regions, regions, DefaultConfig())

	if !almostEqual(res.TotalScore, 100, 1e-9) {
		t.Errorf("TotalScore = %v, want 100", res.TotalScore)
	}
	if res.Recall != 1 || res.Precision != 1 {
		t.Errorf("recall/precision = %v/%v, want 1/1", res.Recall, res.Precision)
	}
}

func TestScoreEmptyReference(t *testing.T) {
	res := Score([]models.Region{box(0, 0, 10, 10)}, nil, DefaultConfig())

	if res.TotalScore != 0 || res.IoU != 0 || res.Recall != 0 || res.Precision != 0 {
		t.Errorf("empty reference should yield all-zero result, got %+v", res)
	}
}

func TestScoreEmptyStudent(t *testing.T) {
	res := Score(nil, []models.Region{box(0, 0, 10, 10)}, DefaultConfig())

	if res.TotalScore != 0 {
		t.Errorf("empty student set should yield zero score, got %v", res.TotalScore)
	}
}

func TestScoreDegenerateRegionsDiscarded(t *testing.T) {
	student := []models.Region{
		box(0, 0, 0.1, 0.1), // area 0.01 <= 0.1
		{Shape: "polygon", Points: [][2]float64{{0, 0}, {1, 1}}}, // too few vertices
	}
	res := Score(student, []models.Region{box(0, 0, 10, 10)}, DefaultConfig())

	if res.TotalScore != 0 {
		t.Errorf("degenerate-only student set should score 0, got %v", res.TotalScore)
	}
}

func TestScoreOffsetRectanglesExactIoU(t *testing.T) {
	// Two 10x10 boxes offset by 5 on one axis: inter 50, union 150.
	student := []models.Region{box(5, 0, 10, 10)}
	reference := []models.Region{box(0, 0, 10, 10)}

	res := Score(student, reference, DefaultConfig())

	want := 50.0 / 150.0
	if len(res.MatchIoUs) != 1 || !almostEqual(res.MatchIoUs[0], want, 1e-9) {
		t.Fatalf("match IoU = %v, want %v", res.MatchIoUs, want)
	}
	// IoU 1/3 is below the 0.5 threshold, so no true match.
	if res.Recall != 0 || res.Precision != 0 {
		t.Errorf("recall/precision = %v/%v, want 0/0", res.Recall, res.Precision)
	}
}

func TestScoreDuplicateStudentPolygons(t *testing.T) {
	reference := []models.Region{box(0, 0, 10, 10)}
	student := []models.Region{box(0, 0, 10, 10), box(0, 0, 10, 10)}

	res := Score(student, reference, DefaultConfig())

	// The duplicate must be dropped, leaving a single perfect match.
	if res.Precision != 1 {
		t.Errorf("precision = %v, want 1 after dedupe", res.Precision)
	}
	if !almostEqual(res.TotalScore, 100, 1e-9) {
		t.Errorf("TotalScore = %v, want 100", res.TotalScore)
	}
}

func TestScorePartialCredit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowPartial = true

	// Student box fully inside a much larger reference: inclusion 1.0,
	// coverage 0.25, IoU 0.25 (below threshold).
	reference := []models.Region{box(0, 0, 20, 20)}
	student := []models.Region{box(0, 0, 10, 10)}

	res := Score(student, reference, cfg)

	if res.Recall != 1 || res.Precision != 1 {
		t.Fatalf("partial match should count as found, recall/precision = %v/%v", res.Recall, res.Precision)
	}
	wantAccuracy := 1.0 * math.Pow(0.25, 1/cfg.LoyaltyFactor) // inclusion * coverage^(1/loyalty)
	if !almostEqual(res.IoU, wantAccuracy, 1e-9) {
		t.Errorf("accuracy = %v, want %v", res.IoU, wantAccuracy)
	}
}

func TestScoreGreedyMatchingIsFirstComeFirstServed(t *testing.T) {
	// Both students overlap ref A best; the first takes it, the second
	// falls through to ref B.
	reference := []models.Region{box(0, 0, 10, 10), box(8, 0, 10, 10)}
	student := []models.Region{box(1, 0, 10, 10), box(0, 0, 10, 10)}

	res := Score(student, reference, DefaultConfig())

	if len(res.MatchIoUs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.MatchIoUs))
	}
}

func TestScoreRangeInvariant(t *testing.T) {
	cases := [][]models.Region{
		{box(0, 0, 1, 1)},
		{box(0, 0, 100, 100), box(50, 50, 10, 10)},
		{{Shape: "ellipse", CX: 5, CY: 5, RX: 3, RY: 2}},
		{{Shape: "polygon", Points: [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}}}},
	}
	reference := []models.Region{box(0, 0, 10, 10)}

	for _, student := range cases {
		res := Score(student, reference, DefaultConfig())
		if res.TotalScore < 0 || res.TotalScore > 100 {
			t.Errorf("TotalScore %v out of [0,100] for %+v", res.TotalScore, student)
		}
	}
}

func TestScoreEllipseNormalization(t *testing.T) {
	// An ellipse against its own polygon approximation should be a near
	// perfect match.
	e := models.Region{Shape: "ellipse", CX: 10, CY: 10, RX: 6, RY: 4}
	res := Score([]models.Region{e}, []models.Region{e}, DefaultConfig())

	if res.TotalScore < 99 {
		t.Errorf("self-match ellipse TotalScore = %v, want ~100", res.TotalScore)
	}
}
