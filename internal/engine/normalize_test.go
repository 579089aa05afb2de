package engine

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"小写转换", "ACME Corp", "acme corp"},
		{"去首尾空白", "  Acme Corp  ", "acme corp"},
		{"内部空白保留", "Acme   Corp", "acme   corp"},
		{"空字符串", "", ""},
		{"纯空白", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripMergeMarker(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"去除合并标记", "Acme Group*", "Acme Group"},
		{"只去一个标记", "Acme Group**", "Acme Group*"},
		{"无标记", "Acme Group", "Acme Group"},
		{"标记后空白", "Acme Group* ", "Acme Group"},
		{"纯星号", "*", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMergeMarker(tt.input); got != tt.want {
				t.Errorf("StripMergeMarker(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyName(t *testing.T) {
	if got := KeyName("  Acme Group*"); got != "acme group" {
		t.Errorf("KeyName = %q, want %q", got, "acme group")
	}
	if KeyName("ACME GROUP") != KeyName("Acme Group*") {
		t.Error("合并标记与大小写差异应映射到同一键")
	}
}
