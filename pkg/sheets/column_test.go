package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnIndexRoundTrip(t *testing.T) {
	for n := 1; n <= 1000; n++ {
		col := IndexToColumn(n)
		assert.Equal(t, n, ColumnToIndex(col), "column %s", col)
	}
}

func TestColumnFwdBack(t *testing.T) {
	cases := []Column{"A", "Z", "AA", "AZ", "BA", "ZZ"}
	for _, c := range cases {
		assert.Equal(t, c, c.Fwd().Back(), "column %s", c)
	}
}

func TestColumnBackBeforeAIsEmpty(t *testing.T) {
	assert.Equal(t, Column(""), Column("A").Back())
}

func TestOffsetFormulaColumnsSkipsQuotedLiterals(t *testing.T) {
	got := OffsetFormulaColumns(`=SUM(C2:C10)+IF(A1="C2 is not a ref",1,0)`, 2)
	assert.Equal(t, `=SUM(E2:E10)+IF(A1="C2 is not a ref",1,0)`, got)
}

func TestOffsetFormulaColumnsPreservesAnchors(t *testing.T) {
	got := OffsetFormulaColumns(`=$C$2+D3`, 1)
	assert.Equal(t, `=$D$2+E3`, got)
}

func TestOffsetFormulaColumnsNegative(t *testing.T) {
	got := OffsetFormulaColumns(`=E5`, -2)
	assert.Equal(t, `=C5`, got)
}
