package sheets

import "fmt"

// UserRowUpdate builds the batch-write payload for editing one
// contributor's row (name/battle-cry columns A:B).
func UserRowUpdate(tab string, row int, name, battleCry string) Update {
	return Update{
		Range:  fmt.Sprintf("%s!A%d:B%d", tab, row, row),
		Values: [][]string{{name, battleCry}},
	}
}

// TargetColumnUpdate builds the batch-write payload for one target's
// fort/um status column, starting at the given header row offset.
func TargetColumnUpdate(tab string, col Column, row int, values []string) Update {
	last := row + len(values) - 1
	return Update{
		Range:  fmt.Sprintf("%s!%s%d:%s%d", tab, col, row, col, last),
		Values: wrapColumn(values),
	}
}

// SingleCellUpdate builds the batch-write payload for one cell, used for a
// drop or a hold.
func SingleCellUpdate(tab string, col Column, row int, value string) Update {
	return Update{
		Range:  fmt.Sprintf("%s!%s%d", tab, col, row),
		Values: [][]string{{value}},
	}
}

// AppendRowUpdate builds the batch-write payload for appending one row at
// the given 1-based row number, used for a KOS report.
func AppendRowUpdate(tab string, row int, values []string) Update {
	last := Column("A").Offset(len(values) - 1)
	return Update{
		Range:  fmt.Sprintf("%s!A%d:%s%d", tab, row, last, row),
		Values: [][]string{values},
	}
}

func wrapColumn(values []string) [][]string {
	out := make([][]string, len(values))
	for i, v := range values {
		out[i] = []string{v}
	}
	return out
}
