package schedule

import "testing"

func TestMergeSplitRows(t *testing.T) {
	rows := []SplitRow{
		{Name: "随机过程", Weekday: 2, StartPeriod: 5, EndPeriod: 6, WeekBitmap: "111", Payload: 1},
		{Name: "随机过程", Weekday: 2, StartPeriod: 3, EndPeriod: 4, WeekBitmap: "111", Payload: 0},
		{Name: "随机过程", Weekday: 2, StartPeriod: 8, EndPeriod: 9, WeekBitmap: "111", Payload: 2},
	}

	merged, err := MergeSplitRows(rows)
	if err != nil {
		t.Fatal(err)
	}

	if len(merged) != 2 {
		t.Fatalf("got %d rows after merge, want 2", len(merged))
	}
	if merged[0].StartPeriod != 3 || merged[0].EndPeriod != 6 {
		t.Errorf("first block spans %d-%d, want 3-6", merged[0].StartPeriod, merged[0].EndPeriod)
	}
	if merged[1].StartPeriod != 8 || merged[1].EndPeriod != 9 {
		t.Errorf("gapped block spans %d-%d, want 8-9 untouched", merged[1].StartPeriod, merged[1].EndPeriod)
	}
}

func TestMergeSplitRowsAcrossWeekdays(t *testing.T) {
	// Same periods on different weekdays must not chain.
	rows := []SplitRow{
		{Name: "英语", Weekday: 1, StartPeriod: 1, EndPeriod: 2},
		{Name: "英语", Weekday: 3, StartPeriod: 3, EndPeriod: 4},
	}

	merged, err := MergeSplitRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 2 {
		t.Fatalf("got %d rows, want 2", len(merged))
	}
}

func TestMergeSplitRowsDifferentNames(t *testing.T) {
	rows := []SplitRow{
		{Name: "高等数学", Weekday: 2, StartPeriod: 3, EndPeriod: 4},
		{Name: "线性代数", Weekday: 2, StartPeriod: 5, EndPeriod: 6},
	}

	merged, err := MergeSplitRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 2 {
		t.Fatalf("rows of different courses merged: got %d, want 2", len(merged))
	}
}

func TestMergeSplitRowsDuplicateStart(t *testing.T) {
	rows := []SplitRow{
		{Name: "体育", Weekday: 4, StartPeriod: 5, EndPeriod: 5},
		{Name: "体育", Weekday: 4, StartPeriod: 5, EndPeriod: 6},
	}

	if _, err := MergeSplitRows(rows); err == nil {
		t.Fatal("duplicate (weekday, start period) rows merged silently, want error")
	}
}

func TestMergeSplitRowsChain(t *testing.T) {
	// Three adjacent single-period rows collapse into one block.
	rows := []SplitRow{
		{Name: "实验", Weekday: 5, StartPeriod: 6, EndPeriod: 6},
		{Name: "实验", Weekday: 5, StartPeriod: 5, EndPeriod: 5},
		{Name: "实验", Weekday: 5, StartPeriod: 7, EndPeriod: 7},
	}

	merged, err := MergeSplitRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 1 {
		t.Fatalf("got %d rows, want 1", len(merged))
	}
	if merged[0].StartPeriod != 5 || merged[0].EndPeriod != 7 {
		t.Errorf("chained block spans %d-%d, want 5-7", merged[0].StartPeriod, merged[0].EndPeriod)
	}
}
