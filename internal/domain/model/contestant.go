package model

import (
	"fmt"
	"strings"
	"unicode"
)

type Contestant struct {
	ID          int64
	PollID      int64
	Category    string
	Name        string
	NomineeCode string
}

// NomineeCode derives the short code contestants of creator-pay polls are addressed by:
// up to three letters of the name followed by the zero-padded contestant id, e.g. "AMA007".
func NomineeCode(name string, id int64) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() == 3 {
			break
		}
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return fmt.Sprintf("%s%03d", b.String(), id)
}
