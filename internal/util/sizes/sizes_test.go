package sizes

import "testing"

func TestHuman(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2560, "2.5 KB"},
		{10 * 1024, "10 KB"},
		{512 * 1024, "512 KB"},
		{1 << 20, "1 MB"},
		{2621440, "2.5 MB"},
		{20 << 20, "20 MB"},
		{50 << 20, "50 MB"},
		{1 << 30, "1 GB"},
		{(3 << 30) / 2, "1.5 GB"},
		{12 << 30, "12 GB"},
		// Values beyond the largest unit stay in GB.
		{2 << 40, "2048 GB"},
	}

	for _, tt := range tests {
		if got := Human(tt.bytes); got != tt.want {
			t.Errorf("Human(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestHumanNegative(t *testing.T) {
	if got := Human(-42); got != "0 B" {
		t.Errorf("Human(-42) = %q, want %q", got, "0 B")
	}
}
