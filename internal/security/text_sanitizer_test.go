package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Bar Pepe", "Bar Pepe"},
		{"surrounding whitespace", "  Bar Pepe \n", "Bar Pepe"},
		{"inline tags", "<b>Casa</b> <i>Lola</i>", "Casa Lola"},
		{"script removed with content", "<script>alert(1)</script>Cafe Central", "Cafe Central"},
		{"event attribute", `<img src="x" onerror="alert(1)">Sushi`, "Sushi"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"accents kept", "Calle Mayor 5, Cádiz", "Calle Mayor 5, Cádiz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	input := "<p>Buen <strong>servicio</strong> &amp; precio</p>"

	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
