package services

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
)

func TestNewChallengeAnswerMatchesParams(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		c := NewChallenge(rng)
		if c.TopK < 10 || c.TopK > 59 {
			t.Fatalf("top_k %d out of range", c.TopK)
		}
		temp, err := strconv.ParseFloat(c.Temperature, 64)
		if err != nil || temp < 0 || temp > 2 {
			t.Fatalf("temperature %q invalid", c.Temperature)
		}
		want := c.TopK*10 + int(temp*100+0.5)
		if c.Answer != want {
			t.Fatalf("answer %d, want %d for %+v", c.Answer, want, c)
		}
		if !strings.Contains(c.Question, "top_k="+strconv.Itoa(c.TopK)) {
			t.Fatalf("question %q missing params", c.Question)
		}
	}
}

func TestCheckChallenge(t *testing.T) {
	tests := []struct {
		expected  int
		submitted string
		want      bool
	}{
		{expected: 420, submitted: "420", want: true},
		{expected: 420, submitted: " 420 ", want: true},
		{expected: 420, submitted: "421", want: false},
		{expected: 420, submitted: "", want: false},
		{expected: 420, submitted: "four", want: false},
		{expected: 0, submitted: "0", want: false},
	}
	for _, tt := range tests {
		if got := CheckChallenge(tt.expected, tt.submitted); got != tt.want {
			t.Errorf("CheckChallenge(%d, %q) = %v, want %v", tt.expected, tt.submitted, got, tt.want)
		}
	}
}
