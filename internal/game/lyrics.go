// Package game holds the pure rules of the lyric game: composing final
// lyrics, deriving the client phase, rotating the producer role, dealing
// hands and generating room codes. Nothing here touches the network or the
// database, so every client computes the same results from the same inputs.
package game

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\d+\}`)

// ComposeLyric fills a card template's {i} placeholders from the blank map.
// A missing or empty blank renders as "___". Total over all inputs and
// independent of map iteration order.
func ComposeLyric(template string, blanks map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		key := ph[1 : len(ph)-1]
		if v := blanks[key]; v != "" {
			return v
		}
		return "___"
	})
}

// CountBlanks counts the {i} placeholders in a template. Used to sanity-check
// a card's declared blank count against its text.
func CountBlanks(template string) int {
	if template == "" {
		return 0
	}
	return len(placeholderRe.FindAllString(template, -1))
}
