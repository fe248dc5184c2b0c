package segment

import "testing"

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		want  string
	}{
		{0, "0.ts"},
		{7, "7.ts"},
		{12, "12.ts"},
		{1024, "1024.ts"},
	}
	for _, tt := range tests {
		if got := FileName(tt.index); got != tt.want {
			t.Errorf("FileName(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestIndexFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		wantIndex int
		wantOK    bool
	}{
		{"0.ts", 0, true},
		{"2.ts", 2, true},
		{"10.ts", 10, true},
		{"episode.mp4", 0, false},
		{"index.m3u8", 0, false},
		{".ts", 0, false},
		{"seg1.ts", 0, false},
		{"01.ts", 0, false},
		{"-1.ts", 0, false},
		{"+1.ts", 0, false},
		{"1.ts.part", 0, false},
		{"1.TS", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			index, ok := IndexFromName(tt.name)
			if ok != tt.wantOK || index != tt.wantIndex {
				t.Errorf("IndexFromName(%q) = (%d, %v), want (%d, %v)", tt.name, index, ok, tt.wantIndex, tt.wantOK)
			}
		})
	}
}

func TestIndexFromName_RoundTrip(t *testing.T) {
	t.Parallel()

	for i := range 200 {
		got, ok := IndexFromName(FileName(i))
		if !ok || got != i {
			t.Fatalf("round trip of %d gave (%d, %v)", i, got, ok)
		}
	}
}
