package xlsx

import "fmt"

// WorkbookError is a failure to open or save a workbook
type WorkbookError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *WorkbookError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("workbook error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("workbook error during %s on %s: %v", e.Operation, e.Path, e.Cause)
}

func (e *WorkbookError) Unwrap() error {
	return e.Cause
}

// SheetError is a failure that concerns one worksheet
type SheetError struct {
	Operation string
	SheetName string
	Cause     error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("worksheet error during %s on sheet '%s': %v", e.Operation, e.SheetName, e.Cause)
}

func (e *SheetError) Unwrap() error {
	return e.Cause
}

// RangeError is a malformed or out of bounds cell range
type RangeError struct {
	Range string
	Cause error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range '%s': %v", e.Range, e.Cause)
}

func (e *RangeError) Unwrap() error {
	return e.Cause
}
