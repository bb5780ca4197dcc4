package report

import (
	"fmt"
)

// MaxColumn is the largest column index ColumnLetter accepts.
const MaxColumn = 703

// ColumnLetter maps a 1-based column index to its spreadsheet letters
// (1 -> A, 26 -> Z, 27 -> AA). Indices past ZZ keep Z as the lead letter,
// so 703 -> ZA.
func ColumnLetter(n int) (string, error) {
	if n < 1 || n > MaxColumn {
		return "", fmt.Errorf("%w: %d (valid 1..%d)", ErrColumnOutOfRange, n, MaxColumn)
	}
	if n <= 26 {
		return string(rune('A' + n - 1)), nil
	}
	lead, rest := n/26, n%26
	if rest == 0 {
		rest = 26
		lead--
	}
	if lead > 26 {
		lead = 26
	}
	return string(rune('A'+lead-1)) + string(rune('A'+rest-1)), nil
}

// ColumnRange returns the "A:X" style range spanning columns from..to.
func ColumnRange(from, to int) (string, error) {
	a, err := ColumnLetter(from)
	if err != nil {
		return "", err
	}
	b, err := ColumnLetter(to)
	if err != nil {
		return "", err
	}
	return a + ":" + b, nil
}
