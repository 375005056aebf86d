package sheets

import "strings"

// IndexToColumn converts a 1-based column index to its A1-style letter
// sequence (1 -> "A", 26 -> "Z", 27 -> "AA"), treating letters as base-26
// with A=1.
func IndexToColumn(n int) string {
	if n < 1 {
		return ""
	}
	var letters []byte
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}
	return string(letters)
}

// ColumnToIndex converts an A1-style column letter sequence to its 1-based
// index. Returns 0 for an empty or invalid input.
func ColumnToIndex(col string) int {
	col = strings.ToUpper(col)
	n := 0
	for i := 0; i < len(col); i++ {
		c := col[i]
		if c < 'A' || c > 'Z' {
			return 0
		}
		n = n*26 + int(c-'A'+1)
	}
	return n
}

// Column is an A1-style column letter sequence with forward/backward/
// offset operations that handle wraparound into an additional letter.
type Column string

// Fwd returns the next column.
func (c Column) Fwd() Column {
	return c.Offset(1)
}

// Back returns the previous column. Calling Back on "A" returns "" (there
// is no column before A).
func (c Column) Back() Column {
	return c.Offset(-1)
}

// Offset returns the column n positions forward (n > 0) or backward
// (n < 0) from c.
func (c Column) Offset(n int) Column {
	idx := ColumnToIndex(string(c)) + n
	if idx < 1 {
		return ""
	}
	return Column(IndexToColumn(idx))
}
