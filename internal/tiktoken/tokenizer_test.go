package tiktoken

import "testing"

func TestEstimateTextTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "hello", want: 1},
		{in: "hello world", want: 2},
		{in: "hello, world!", want: 4},
		{in: "你好", want: 3},
		{in: "a 你", want: 3},
	}
	for _, tt := range tests {
		if got := EstimateTextTokens(tt.in); got != tt.want {
			t.Fatalf("EstimateTextTokens(%q)=%d want=%d", tt.in, got, tt.want)
		}
	}
}

func TestEstimateTextTokensScalesWithLength(t *testing.T) {
	short := EstimateTextTokens("one two three")
	long := EstimateTextTokens("one two three four five six seven eight")
	if long <= short {
		t.Fatalf("longer text should estimate more tokens: %d vs %d", short, long)
	}
}
