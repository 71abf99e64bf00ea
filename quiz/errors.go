/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrGameOver       = errors.New("game is over")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrEmptyLabel     = errors.New("empty label")
)

// UnknownLabelError is returned when a label is not present where the
// caller expected it: in the catalog, or in the current round.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown label %q", e.Label)
}

// RoundError reports a content defect in a round definition.
type RoundError struct {
	Index  int
	Reason string
}

func (e *RoundError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}

	return fmt.Sprintf("round %d: %s", e.Index+1, e.Reason)
}
