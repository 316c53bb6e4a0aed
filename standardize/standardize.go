// Package standardize reconciles site-specific vocabulary into the canonical
// labels stored on a story. Every function trims its input and returns the
// canonical value, or an empty string when the value should be dropped.
// Unknown values pass through unchanged.
package standardize

import (
	"regexp"
	"strings"
)

var (
	ratingParentheses = regexp.MustCompile(`\(.*\)`)
	ratingHyphen      = regexp.MustCompile(` - .*`)
)

// Rating strips trailing qualifiers such as "(13+)" or " - Teens and up" and
// maps rating words to their single-letter codes.
func Rating(rating string) string {
	rating = ratingParentheses.ReplaceAllString(rating, "")
	rating = ratingHyphen.ReplaceAllString(rating, "")
	rating = strings.TrimSpace(rating)

	switch rating {
	case "Teens":
		return "T"
	case "Everyone":
		return "E"
	case "Mature":
		return "M"
	}
	return rating
}

// Status maps completion labels to WIP or Completed.
func Status(status string) string {
	status = strings.TrimSpace(status)

	switch status {
	case "WIP (Work in progress)":
		return "WIP"
	case "Complete":
		return "Completed"
	case "Updated":
		return "WIP"
	}
	return status
}

// Genre has no mapping table yet.
func Genre(genre string) string {
	return strings.TrimSpace(genre)
}

// Character drops blank names.
func Character(character string) string {
	// TODO: map shortened fanfiction.net names ("Harry P.") to full names
	return strings.TrimSpace(character)
}

// Warning collapses spaced slashes and drops the archive's "no warning"
// placeholders.
func Warning(warning string) string {
	warning = strings.TrimSpace(warning)
	warning = strings.ReplaceAll(warning, " / ", "/")

	switch warning {
	case "No Archive Warnings Apply", "Creator Chose Not To Use Archive Warnings":
		return ""
	}
	return warning
}

// Category drops the house placeholder used by the HP archive.
func Category(category string) string {
	category = strings.TrimSpace(category)
	if category == "Hogwarts House" {
		return ""
	}
	return category
}

// Universe maps fandom names to a single spelling across sites.
func Universe(universe string) string {
	universe = strings.TrimSpace(universe)

	switch universe {
	case "Harry Potter - J. K. Rowling":
		return "Harry Potter"
	case "balto":
		return "Balto"
	}
	return universe
}
