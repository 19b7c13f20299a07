package coverage

import "fmt"

// ParseError reports an upload that could not be read as a spreadsheet.
// Nothing from such an upload is processed.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not read %q as a spreadsheet: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports user input that is well-formed as a file or form but unusable:
// a non-numeric client id, or a sheet without the required columns.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EmptyResultWarning reports a query that ran but had nothing to show.
type EmptyResultWarning struct {
	Message string
}

func (w EmptyResultWarning) Error() string {
	return w.Message
}
