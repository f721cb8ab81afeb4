package utils

import (
	"math"
	"strconv"
	"strings"
)

func ContainsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

func UniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, val := range input {
		if !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}
	return result
}

// Clamp01 bounds a value to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp bounds a value to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}

// ParseOvers converts cricket overs notation ("12.3" meaning 12 overs
// and 3 balls) into a decimal over count. Malformed input returns 0.
func ParseOvers(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	whole, frac, ok := strings.Cut(s, ".")
	w, err := strconv.Atoi(whole)
	if err != nil || w < 0 {
		return 0
	}
	if !ok || frac == "" {
		return float64(w)
	}
	b, err := strconv.Atoi(frac)
	if err != nil || b < 0 || b > 5 {
		return float64(w)
	}
	return float64(w) + float64(b)/6
}

// BallsFromOvers converts a decimal over count into total legal balls bowled.
func BallsFromOvers(overs float64) int {
	return int(math.Round(overs * 6))
}

// BallsFromNotation converts overs in cricket notation (12.3 meaning
// 12 overs and 3 balls) into total legal balls bowled. The fractional
// digit is a ball count, not a decimal fraction.
func BallsFromNotation(overs float64) int {
	if overs < 0 {
		return 0
	}
	whole := int(overs)
	balls := int(math.Round((overs - float64(whole)) * 10))
	if balls > 5 {
		balls = 5
	}
	return whole*6 + balls
}

// FormatOvers renders total balls as cricket overs notation ("12.3").
func FormatOvers(balls int) string {
	if balls < 0 {
		balls = 0
	}
	return strconv.Itoa(balls/6) + "." + strconv.Itoa(balls%6)
}
