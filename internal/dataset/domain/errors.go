package dataset

import "errors"

var (
	// ErrUnknownDataset indicates a dataset name outside the catalog.
	ErrUnknownDataset = errors.New("dataset: unknown dataset")
	// ErrInvalidDateColumn indicates a malformed date-column specification.
	ErrInvalidDateColumn = errors.New("dataset: invalid date column")
	// ErrInvalidRange indicates date_from after date_to.
	ErrInvalidRange = errors.New("dataset: invalid date range")
	// ErrSchemaDrift indicates a source returned columns other than the dataset schema.
	ErrSchemaDrift = errors.New("dataset: schema drift")
	// ErrMissingColumn indicates a derivation needs a column the table lacks.
	ErrMissingColumn = errors.New("dataset: missing column")
	// ErrUnknownRule indicates an unrecognised business rule version.
	ErrUnknownRule = errors.New("dataset: unknown rule")
)
