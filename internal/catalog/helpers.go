package catalog

import "strconv"

// idKey renders an ID for use in NotFoundError/IntegrityViolationError
// messages.
func idKey(id ID) string {
	return strconv.FormatInt(int64(id), 10)
}

// oneOf enforces the "get-one" arity contract shared by every
// name-based catalog lookup (spec.md §4.2): zero matches is NotFound,
// more than one is IntegrityViolation, exactly one is returned.
func oneOf[T any](matches []T, entityKind, key string) (T, error) {
	var zero T
	switch len(matches) {
	case 0:
		return zero, &NotFoundError{EntityKind: entityKind, Key: key}
	case 1:
		return matches[0], nil
	default:
		return zero, &IntegrityViolationError{EntityKind: entityKind, Key: key, Reason: "more than one row matched"}
	}
}
