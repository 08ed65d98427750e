package htmlmd

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"blockquote stripped", "> quoted\n> more", "quoted\nmore"},
		{"nested blockquote stripped", "> > deep", "deep"},
		{"tabs stripped", "\t\tindented", "indented"},
		{"four spaces stripped", "    indented", "indented"},
		{"eight spaces stripped", "        indented", "indented"},
		{"three spaces kept", "   kept", "kept"},
		{"mixed indent then quote", "    > both", "both"},
		{"newlines collapsed", "a\n\n\n\n\n\nb", "a\n\n\nb"},
		{"three newlines kept", "a\n\n\nb", "a\n\n\nb"},
		{"trimmed", "  \n\nbody\n\n  ", "body"},
		{"table fallback spacing", "x\n\n\n<table>r</table>\n\n\ny", "x\n<table>r</table>\n\ny"},
		{"math fallback spacing", "x\n\n<math>m</math>\n\n\ny", "x\n<math>m</math>\ny"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"> quoted\n>> nested\n    indented\n\t\ttabs",
		"a\n\n\n\n\n\nb\n\n\nc",
		"    > mixed\n >  spaced",
		"x\n\n\n<table>t</table>\n\n\n\ny",
		"<math>m</math>\n\n\nrest",
		"| A | B |\n| --- | --- |\n| 1 | 2 |\n\nprose",
		"$$\nlong expression\n$$\n\n\n\ntail",
		"   three spaces\n     five spaces\n        eight",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}
