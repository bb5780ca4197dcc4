package report

import "errors"

var (
	// ErrUnsupportedAgg indicates an aggregation outside the supported set.
	ErrUnsupportedAgg = errors.New("report: unsupported aggregation")
	// ErrColumnOutOfRange indicates a spreadsheet column index outside 1..703.
	ErrColumnOutOfRange = errors.New("report: column index out of range")
	// ErrUnsupportedBreakdown indicates a technology breakdown measure other than Volume, Price or Count.
	ErrUnsupportedBreakdown = errors.New("report: unsupported breakdown")
	// ErrUnknownService indicates an auction service the report cannot classify.
	ErrUnknownService = errors.New("report: unknown service")
)
