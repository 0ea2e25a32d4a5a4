package s3_label

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/internal/contracts"
)

var (
	jan = contracts.NewMonth(2020, time.January)
	feb = contracts.NewMonth(2020, time.February)
)

func panelOf(month contracts.Month, ys ...float64) *contracts.Panel {
	p := &contracts.Panel{}
	for i, y := range ys {
		p.Rows = append(p.Rows, contracts.PanelRow{
			Month: month,
			Asset: string(rune('A' + i)),
			Y:     y,
		})
	}
	return p
}

func grades(p *contracts.LabeledPanel) []int {
	out := make([]int, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Grade
	}
	return out
}

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		rank  int
		n     int
		bins  int
		grade int
	}{
		{"single positive is top", 1, 1, 5, 4},
		{"pct just above zero", 1, 1000, 5, 1},
		{"pct just below one", 999, 1000, 5, 4},
		{"pct exactly one is clipped", 1000, 1000, 5, 4},
		{"pct at interior boundary", 5, 10, 5, 3},
		{"three bins lower half", 1, 2, 3, 2},
		{"three bins min", 1, 3, 3, 1},
		{"ten bins top", 10, 10, 10, 9},
		{"ten bins bottom", 1, 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.grade, Grade(tt.rank, tt.n, tt.bins))
		})
	}
}

func TestGradeZeroPct(t *testing.T) {
	// pct = 0 is unreachable with 1-based ranks; the clip keeps it in range anyway
	assert.Equal(t, 1, Grade(0, 10, 5))
}

func TestLabel_TenPositivesFiveBins(t *testing.T) {
	p := panelOf(jan, 0.10, 0.01, 0.05, 0.03, 0.08, 0.02, 0.07, 0.04, 0.09, 0.06)

	labeled, err := Label(p, 5)
	require.NoError(t, err)

	// ascending y → 1,1,2,2,3,3,3,4,4,4
	byY := map[float64]int{}
	for _, r := range labeled.Rows {
		byY[r.Y] = r.Grade
	}
	assert.Equal(t, 1, byY[0.01])
	assert.Equal(t, 1, byY[0.02])
	assert.Equal(t, 2, byY[0.03])
	assert.Equal(t, 2, byY[0.04])
	assert.Equal(t, 3, byY[0.05])
	assert.Equal(t, 3, byY[0.07])
	assert.Equal(t, 4, byY[0.08])
	assert.Equal(t, 4, byY[0.10])

	assert.Equal(t, []int{0, 2, 2, 3, 3}, Distribution(labeled))
}

func TestLabel_NonPositiveMonth(t *testing.T) {
	p := panelOf(jan, 0, -0.01, -0.2)

	labeled, err := Label(p, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, grades(labeled))
}

func TestLabel_TiesKeepRowOrder(t *testing.T) {
	p := panelOf(jan, 0.05, 0.05, 0.05, 0.05)

	labeled, err := Label(p, 3)
	require.NoError(t, err)
	// ranks 1..4 by row order: pct .25 .5 .75 1 → floor(pct·2) = 0,1,1,2→1
	assert.Equal(t, []int{1, 2, 2, 2}, grades(labeled))
}

func TestLabel_MonotonicWithinMonth(t *testing.T) {
	p := panelOf(jan, 0.3, -0.1, 0.7, 0.2, 0.9, 0.0, 0.5)
	p.Rows = append(p.Rows, panelOf(feb, 0.4, 0.1).Rows...)

	labeled, err := Label(p, 7)
	require.NoError(t, err)

	for i, a := range labeled.Rows {
		for j, b := range labeled.Rows {
			if i == j || a.Month != b.Month {
				continue
			}
			if a.Y < b.Y {
				assert.LessOrEqual(t, a.Grade, b.Grade, "%s(%v) vs %s(%v)", a.Asset, a.Y, b.Asset, b.Y)
			}
		}
		if a.Y > 0 {
			assert.GreaterOrEqual(t, a.Grade, 1)
			assert.LessOrEqual(t, a.Grade, 6)
		} else {
			assert.Equal(t, 0, a.Grade)
		}
	}
}

func TestLabel_DoesNotMutateInput(t *testing.T) {
	p := panelOf(jan, 0.1, 0.2)
	p.Rows[0].Grade = 99

	labeled, err := Label(p, 5)
	require.NoError(t, err)

	assert.Equal(t, 99, p.Rows[0].Grade)
	assert.Equal(t, 0, p.Rows[1].Grade)
	assert.Equal(t, 5, labeled.Bins)
	assert.NotEqual(t, 99, labeled.Rows[0].Grade)
}

func TestLabel_InvalidBins(t *testing.T) {
	_, err := Label(panelOf(jan, 0.1), 2)
	assert.ErrorIs(t, err, contracts.ErrInvalidBins)
}
