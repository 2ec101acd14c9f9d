package utils

import (
	"testing"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple string",
			input:    "hello",
			expected: "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		},
		{
			name:     "Complex string",
			input:    "The quick brown fox jumps over the lazy dog",
			expected: "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashString(tt.input)
			if result != tt.expected {
				t.Errorf("Expected hash %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestHashKey(t *testing.T) {
	a := HashKey("https://example.com/a", " Gunmen attack travellers ")
	b := HashKey("HTTPS://example.com/a", "gunmen attack travellers")
	if a != b {
		t.Errorf("expected case and whitespace insensitive key, got %s != %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("Expected hash length 40, got %d", len(a))
	}
	if HashKey("a", "b") == HashKey("ab") {
		t.Error("separator must keep part boundaries distinct")
	}
}

func BenchmarkHashString(b *testing.B) {
	testString := "This is a test string for benchmarking the hash function performance"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		HashString(testString)
	}
}
