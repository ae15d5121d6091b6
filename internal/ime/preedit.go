package ime

import "unicode/utf8"

// PreeditView is the inline text shown while composing: the converted
// buffer followed by the unconverted phonetic symbols.
type PreeditView struct {
	Text string
	// Cursor is a byte offset into Text.
	Cursor int
}

// ComposePreedit builds the preedit for a buffer, the pending phonetic
// symbols and the engine cursor (counted in characters of buffer). A
// cursor at the end of the buffer lands after the phonetic symbols so
// the caret follows what is being typed.
func ComposePreedit(buffer, phonetic string, cursor int) PreeditView {
	text := buffer + phonetic
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= utf8.RuneCountInString(buffer) {
		return PreeditView{Text: text, Cursor: len(text)}
	}
	return PreeditView{Text: text, Cursor: runeOffset(buffer, cursor)}
}

// runeOffset returns the byte offset of the n-th rune of s.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
