package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
)

func frag(text string, x, y, w, h float64, page int) entity.Fragment {
	return entity.Fragment{Text: text, Confidence: 0.9, Box: geometry.RectBox(x, y, w, h), Page: page}
}

func TestRowThreshold(t *testing.T) {
	c := NewClusterer(Config{})

	assert.Equal(t, DefaultFallbackRowThreshold, c.RowThreshold(nil))
	assert.Equal(t, DefaultFallbackRowThreshold, c.RowThreshold([]entity.Fragment{{Text: "no box"}}))
	assert.InDelta(t, 16.0, c.RowThreshold([]entity.Fragment{
		frag("a", 0, 0, 10, 20, 0),
		frag("b", 0, 0, 10, 20, 0),
	}), 1e-9)
}

func TestRowsGreedySweep(t *testing.T) {
	c := NewClusterer(DefaultConfig())
	// height 10 -> threshold 8
	frags := []entity.Fragment{
		frag("amount", 400, 101, 50, 10, 0),
		frag("desc", 10, 100, 80, 10, 0),
		frag("next row", 10, 130, 80, 10, 0),
	}
	rows := c.Rows(frags)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Equal(t, "desc", rows[0][0].Text)
	assert.Equal(t, "next row", rows[1][0].Text)
}

func TestRowsComparesAgainstPreviousFragment(t *testing.T) {
	c := NewClusterer(DefaultConfig())
	// each step is 7 (<= threshold 8) so the chain stays one row even though
	// the first and last fragments are 21 apart
	frags := []entity.Fragment{
		frag("a", 10, 100, 20, 10, 0),
		frag("b", 40, 107, 20, 10, 0),
		frag("c", 70, 114, 20, 10, 0),
		frag("d", 100, 121, 20, 10, 0),
	}
	rows := c.Rows(frags)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 4)
}

func TestDateAnchor(t *testing.T) {
	c := NewClusterer(DefaultConfig())

	assert.Equal(t, DefaultDateAnchorX, c.DateAnchor([]entity.Fragment{frag("hello", 10, 10, 10, 10, 0)}))
	assert.Equal(t, 310.0, c.DateAnchor([]entity.Fragment{
		frag("12-03-2024", 320, 10, 60, 10, 0),
		frag("2024/03/13", 310, 30, 60, 10, 0),
		frag("Paracetamol", 10, 10, 60, 10, 0),
	}))
	custom := NewClusterer(Config{DefaultDateAnchorX: 180})
	assert.Equal(t, 180.0, custom.DateAnchor(nil))
}

func TestBlocksSplitAtAnchor(t *testing.T) {
	c := NewClusterer(DefaultConfig())
	frags := []entity.Fragment{
		frag("MEDICINES", 10, 50, 80, 10, 0),
		frag("Paracetamol 500mg", 10, 100, 120, 10, 0),
		frag("12-03-2024", 300, 100, 60, 10, 0),
		frag("45.00", 450, 101, 40, 10, 0),
		frag("2", 400, 100, 10, 10, 0),
		frag("Page 1 of 2", 10, 700, 60, 10, 0),
	}
	blocks := c.Blocks(frags)
	require.Len(t, blocks, 1)
	b := blocks[0]
	assert.Equal(t, "Paracetamol 500mg", b.Description)
	assert.Equal(t, []string{"12-03-2024", "2", "45.00"}, b.Columns)
	assert.Equal(t, "Paracetamol 500mg 12-03-2024 2 45.00", b.Text)
	assert.Equal(t, 0, b.Page)
	assert.Equal(t, 100.0, b.Y)
}

func TestBlocksWithoutGeometry(t *testing.T) {
	c := NewClusterer(DefaultConfig())
	frags := []entity.Fragment{
		{Text: "Paracetamol 45.00"},
		{Text: "Syringe 10.00"},
	}
	// every fragment sits at x=0,y=0: one row, all description, no columns
	assert.Empty(t, c.Blocks(frags))
	assert.Empty(t, c.Blocks(nil))
}

func TestRowsIgnorePage(t *testing.T) {
	c := NewClusterer(DefaultConfig())
	// same top-y band on different pages: page is carried, not a clustering key
	frags := []entity.Fragment{
		frag("45.00", 450, 103, 40, 10, 0),
		frag("Syringe 5ml", 10, 100, 100, 10, 1),
	}
	rows := c.Rows(frags)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 2)
	assert.Equal(t, "Syringe 5ml", rows[0][0].Text)

	blocks := c.Blocks(frags)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Syringe 5ml", blocks[0].Description)
	assert.Equal(t, []string{"45.00"}, blocks[0].Columns)
	assert.Equal(t, 1, blocks[0].Page)
	assert.Equal(t, 100.0, blocks[0].Y)
}
