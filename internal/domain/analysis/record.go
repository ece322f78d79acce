package analysis

import (
	"strings"

	"pixelrank/internal/domain/color"
)

// ErrorSuffix is appended to the location when no image could be analyzed
// there, whatever the reason.
const ErrorSuffix = " - NO IMAGE AT THIS LOCATION"

// Record is the outcome of analyzing one input location. Exactly one Record
// exists per input line; failures are carried as data, never as a returned
// error.
type Record struct {
	Location string
	Colors   []color.RGB
	Err      error
}

// Failed reports whether the location produced no analyzable image.
func (r Record) Failed() bool {
	return r.Err != nil
}

// Line renders the output-file representation: the location followed by up
// to three ,#RRGGBB entries in rank order, or the fixed error suffix.
func (r Record) Line() string {
	if r.Err != nil {
		return r.Location + ErrorSuffix
	}

	var sb strings.Builder
	sb.WriteString(r.Location)
	for _, c := range r.Colors {
		sb.WriteString(",#")
		sb.WriteString(c.Hex())
	}
	return sb.String()
}
