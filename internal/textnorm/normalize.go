// Package textnorm canonicalizes request text before synthesis. Line breaks
// inside a request make some models cut the utterance short, and a missing
// terminal punctuation mark degrades the prosody of the final phrase.
package textnorm

import "strings"

var replacer = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

const terminalPunctuation = ".!?,:;"

// Normalize trims the text, flattens line breaks to spaces, straightens curly
// quotes and ensures the result ends in punctuation. Returns the empty string
// when nothing speakable remains; normalizing an already-normalized text is a
// no-op.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = replacer.Replace(text)
	if text == "" {
		return ""
	}
	if !strings.ContainsRune(terminalPunctuation, rune(text[len(text)-1])) {
		text += "."
	}
	return text
}
