package sheets

import "context"

// FakeDocument is an in-memory, recording Document used by scanner and
// dispatcher tests.
type FakeDocument struct {
	TitleValue string
	Cells      [][]string // row-major, mutated by BatchUpdate for round-trip tests
	ActiveTab  string

	Updates []Update // every BatchUpdate call, in order, for assertions
}

func (f *FakeDocument) Title(ctx context.Context) (string, error) {
	return f.TitleValue, nil
}

func (f *FakeDocument) WholeSheet(ctx context.Context) ([][]string, error) {
	out := make([][]string, len(f.Cells))
	for i, row := range f.Cells {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (f *FakeDocument) BatchGet(ctx context.Context, ranges []string, dim MajorDimension) ([]RangeBlock, error) {
	blocks := make([]RangeBlock, len(ranges))
	for i, r := range ranges {
		blocks[i] = RangeBlock{Range: r}
	}
	return blocks, nil
}

func (f *FakeDocument) BatchUpdate(ctx context.Context, updates []Update) error {
	f.Updates = append(f.Updates, updates...)
	return nil
}

func (f *FakeDocument) ChangeWorksheet(ctx context.Context, tabName string) error {
	f.ActiveTab = tabName
	return nil
}
