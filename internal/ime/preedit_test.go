package ime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposePreedit(t *testing.T) {
	tests := []struct {
		name     string
		buffer   string
		phonetic string
		cursor   int
		want     PreeditView
	}{
		{"empty", "", "", 0, PreeditView{Text: "", Cursor: 0}},
		{"phonetic only", "", "ㄘㄜ", 0, PreeditView{Text: "ㄘㄜ", Cursor: 6}},
		{"buffer only", "測試", "", 2, PreeditView{Text: "測試", Cursor: 6}},
		{"both, cursor at end", "測試", "ㄘ", 2, PreeditView{Text: "測試ㄘ", Cursor: 9}},
		{"cursor inside buffer", "測試", "", 1, PreeditView{Text: "測試", Cursor: 3}},
		{"cursor at start", "測試", "", 0, PreeditView{Text: "測試", Cursor: 0}},
		{"negative cursor", "ab", "", -1, PreeditView{Text: "ab", Cursor: 0}},
		{"cursor past end", "ab", "c", 9, PreeditView{Text: "abc", Cursor: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposePreedit(tt.buffer, tt.phonetic, tt.cursor))
		})
	}
}

func TestComposePreeditIsConcatenation(t *testing.T) {
	for _, c := range []struct{ buffer, phonetic string }{
		{"", ""}, {"你", "ㄏㄠ"}, {"abc", ""}, {"", "ㄅ"},
	} {
		got := ComposePreedit(c.buffer, c.phonetic, 0)
		assert.Equal(t, c.buffer+c.phonetic, got.Text)
	}
}
