package standardize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRating verifies rating codes and suffix stripping
func TestRating(t *testing.T) {
	cases := map[string]string{
		"Teens":                 "T",
		"Everyone":              "E",
		"Mature":                "M",
		"  Mature  ":            "M",
		"Teens (13+)":           "T",
		"Mature - Adults only":  "M",
		"K+":                    "K+",
		"Explicit":              "Explicit",
		"Teen And Up Audiences": "Teen And Up Audiences",
		"":                      "",
	}

	for in, want := range cases {
		assert.Equal(t, want, Rating(in), "rating %q", in)
	}
}

// TestStatus verifies completion labels map to WIP or Completed
func TestStatus(t *testing.T) {
	cases := map[string]string{
		"WIP (Work in progress)": "WIP",
		"Complete":               "Completed",
		"Updated":                "WIP",
		" Complete ":             "Completed",
		"Completed":              "Completed",
		"Abandoned":              "Abandoned",
	}

	for in, want := range cases {
		assert.Equal(t, want, Status(in), "status %q", in)
	}
}

// TestWarning verifies slash collapsing and placeholder drops
func TestWarning(t *testing.T) {
	assert.Equal(t, "", Warning("No Archive Warnings Apply"))
	assert.Equal(t, "", Warning(" Creator Chose Not To Use Archive Warnings "))
	assert.Equal(t, "Rape/Non-Con", Warning("Rape / Non-Con"))
	assert.Equal(t, "Major Character Death", Warning("Major Character Death"))
}

// TestCategory verifies the house placeholder is dropped
func TestCategory(t *testing.T) {
	assert.Equal(t, "", Category("Hogwarts House"))
	assert.Equal(t, "", Category("  Hogwarts House "))
	assert.Equal(t, "F/M", Category(" F/M "))
}

// TestCharacter verifies blank names are dropped
func TestCharacter(t *testing.T) {
	assert.Equal(t, "", Character(""))
	assert.Equal(t, "", Character("   "))
	assert.Equal(t, "Harry P.", Character(" Harry P. "))
}

// TestUniverse verifies fandom spelling is unified
func TestUniverse(t *testing.T) {
	assert.Equal(t, "Harry Potter", Universe("Harry Potter - J. K. Rowling"))
	assert.Equal(t, "Balto", Universe("balto"))
	assert.Equal(t, "Balto", Universe("Balto"))
	assert.Equal(t, "Naruto", Universe(" Naruto "))
}

// TestGenre verifies genres are only trimmed
func TestGenre(t *testing.T) {
	assert.Equal(t, "Romance", Genre(" Romance "))
	assert.Equal(t, "hurt/comfort", Genre("hurt/comfort"))
}
