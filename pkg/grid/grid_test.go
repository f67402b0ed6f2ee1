package grid

import "testing"

func TestGetGridCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// 16 cols (tile viewer)
		{0, 16, 0, 0},
		{1, 16, 1, 0},
		{15, 16, 15, 0},
		{16, 16, 0, 1},
		{17, 16, 1, 1},
		{255, 16, 15, 15},

		// 32 cols (background map)
		{0, 32, 0, 0},
		{31, 32, 31, 0},
		{32, 32, 0, 1},
		{1023, 32, 31, 31},

		// 20 cols (visible screen in tiles)
		{19, 20, 19, 0},
		{359, 20, 19, 17},
	}

	for _, tc := range tests {
		gotX, gotY := GetGridCoords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("GetGridCoords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
		if got := GetIndex(gotX, gotY, tc.cols); got != tc.index {
			t.Errorf("GetIndex(%d, %d, %d) = %d; want %d", gotX, gotY, tc.cols, got, tc.index)
		}
	}
}
