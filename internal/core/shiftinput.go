package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// ShiftParser turns free text (usually transcribed speech) into shifts.
// Implementations call an external language model.
type ShiftParser interface {
	ParseShifts(ctx context.Context, text string) (ParsedShifts, error)
}

// ParsedShifts is the structured answer expected from a ShiftParser.
type ParsedShifts struct {
	Shift1 WorkShift  `json:"shift1"`
	Shift2 *WorkShift `json:"shift2,omitempty"`
}

// ParseShiftInput decodes a parser answer. The first shift must carry both
// a start and an end.
func ParseShiftInput(data []byte) (ParsedShifts, error) {
	var ps ParsedShifts
	if err := json.Unmarshal(data, &ps); err != nil {
		return ParsedShifts{}, fmt.Errorf("decode shift input: %w", err)
	}
	if err := ps.Validate(); err != nil {
		return ParsedShifts{}, err
	}
	return ps, nil
}

func (ps ParsedShifts) Validate() error {
	if ps.Shift1.IsEmpty() {
		return ErrMissingShift
	}
	return nil
}

// ApplyTo replaces the shifts of day with the parsed ones, keeping the
// payment flag. A missing second shift clears it.
func (ps ParsedShifts) ApplyTo(day WorkDay) WorkDay {
	out := WorkDay{
		Shift1:         ps.Shift1,
		PaymentPending: day.PaymentPending,
	}
	if ps.Shift2 != nil {
		out.Shift2 = *ps.Shift2
	}
	return out
}
