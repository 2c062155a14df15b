package usecase

import (
	"crypto/rand"
	"io"
	"strings"
)

// A character set that avoids ambiguous characters like O/0, I/1, l.
const admissionCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateAdmissionCode creates a random, human-readable voter code.
// Format: XXXX-XXXX
func generateAdmissionCode() (string, error) {
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = admissionCodeChars[int(buffer[i])%len(admissionCodeChars)]
	}

	return string(buffer[0:4]) + "-" + string(buffer[4:8]), nil
}

// NormalizeAdmissionCode uppercases and restores the dash callers tend to drop
// on a phone keypad, so "abcd2345" and "ABCD-2345" are the same code.
func NormalizeAdmissionCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, " ", "")
	if len(code) == 8 && !strings.Contains(code, "-") {
		code = code[:4] + "-" + code[4:]
	}
	return code
}
