package services

import (
	"errors"
	"fmt"
	"strings"
)

// Domain error kinds. Controllers map these to HTTP statuses; services attach
// context by wrapping with fmt.Errorf("...: %w", Err...).
var (
	// ErrNotFound covers missing assessments, details, criteria and sets.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition means the requested action is not legal for the
	// assessment's current status.
	ErrInvalidTransition = errors.New("action not allowed in current status")
	// ErrNotOwned means the actor is neither the assessor nor privileged.
	ErrNotOwned = errors.New("actor does not own this assessment")
	// ErrInsufficientPrivilege means the actor lacks a required capability.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	// ErrDuplicateActiveAssessment means an unfinished assessment already
	// exists for the same location and set.
	ErrDuplicateActiveAssessment = errors.New("an active assessment already exists for this location and set")
	// ErrCriterionInUse blocks deleting a criterion still linked to a set.
	ErrCriterionInUse = errors.New("criterion is referenced by one or more assessment sets")
	// ErrSetInUse blocks deleting a set still referenced by assessments.
	ErrSetInUse = errors.New("assessment set is referenced by one or more assessments")
	// ErrStaleWrite means the caller supplied a row version that no longer
	// matches the stored header.
	ErrStaleWrite = errors.New("assessment was modified by another request")
)

// IncompleteError reports every submission-guard violation at once so the
// assessor can fix all of them in a single attempt. Both lists hold criterion
// IDs.
type IncompleteError struct {
	Unscored    []int
	Unevidenced []int
}

func (e *IncompleteError) Error() string {
	if len(e.Unscored) == 0 && len(e.Unevidenced) == 0 {
		return "assessment has no details to submit"
	}
	var parts []string
	if len(e.Unscored) > 0 {
		parts = append(parts, fmt.Sprintf("unscored criteria: %s", joinIDs(e.Unscored)))
	}
	if len(e.Unevidenced) > 0 {
		parts = append(parts, fmt.Sprintf("criteria missing images: %s", joinIDs(e.Unevidenced)))
	}
	return "assessment incomplete: " + strings.Join(parts, "; ")
}

func joinIDs(ids []int) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(strs, ", ")
}
