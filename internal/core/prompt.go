package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const promptFormat = "You are an email classifier. Given the following email content, " +
	"analyze and output the probability that this email is spam. " +
	"Reply only with a number between 0 and 100. No explanation.\n\n" +
	"Subject: %s\n" +
	"From: %s\n" +
	"To: %s\n" +
	"Date: %s\n" +
	"Body: %s\n"

// BuildPrompt formats the classification prompt for an email using body as
// the (possibly truncated) message body
func BuildPrompt(email *Email, body string) string {
	return fmt.Sprintf(promptFormat, email.Subject, email.From, email.To, email.Date, body)
}

// PromptHash returns the hex SHA-256 of a prompt, used as cache key
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// ParseProbability parses a model reply into a spam percentage clamped to
// [0, 100]. Hexadecimal floats are rejected.
func ParseProbability(reply string) (float64, error) {
	s := strings.TrimSpace(reply)
	if isHexFloat(s) {
		return 0, fmt.Errorf("reply is not a number: %q", reply)
	}
	probability, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("reply is not a number: %q", reply)
	}
	return ClampPercent(probability), nil
}

func isHexFloat(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// ClampPercent clamps v to [0, 100]. NaN clamps to 100.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 100
	}
	return math.Max(0, math.Min(100, v))
}
