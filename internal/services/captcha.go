package services

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Challenge is the arithmetic robot test shown on the registration form.
type Challenge struct {
	TopK        int
	Temperature string
	Question    string
	Answer      int
}

// NewChallenge draws top_k in [10, 59] and a temperature in [0.0, 2.0] with
// one decimal; the expected answer is top_k*10 + temperature*100.
func NewChallenge(rng *rand.Rand) Challenge {
	k := int(math.Floor(rng.Float64()*50)) + 10
	// temperature is kept as whole tenths so the answer stays integral
	tenths := int(math.Round(rng.Float64() * 20))
	temp := fmt.Sprintf("%d.%d", tenths/10, tenths%10)
	return Challenge{
		TopK:        k,
		Temperature: temp,
		Question:    fmt.Sprintf("(top_k * 10) + (temperature * 100) | Params: top_k=%d, temperature=%s", k, temp),
		Answer:      k*10 + tenths*10,
	}
}

// CheckChallenge compares a submitted answer with the expected one.
func CheckChallenge(expected int, submitted string) bool {
	if expected == 0 {
		return false
	}
	value, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return false
	}
	return value == expected
}
