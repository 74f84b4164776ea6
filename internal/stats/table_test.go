package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Challenge", "Rate", "Att"}
	rows := [][]string{
		{"Stage 1 Boss Spell 1", "50.0%", "12"},
		{"霊符", "100.0%", "3"},
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Challenge              Rate Att" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Stage 1 Boss Spell 1  50.0%  12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "霊符                 100.0%   3" {
		t.Fatalf("wide runes should count as two cells: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
