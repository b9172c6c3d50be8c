package rollbook

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidInput = errors.New("invalid input")

// ValidateRoll parses a user supplied roll number. Only positive integers
// that fit the stored 32 bit field are accepted.
func ValidateRoll(v string) (int32, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.Wrap(ErrInvalidInput, "roll is required")
	}

	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInput, "roll %q is not an integer", v)
	}

	if n <= 0 {
		return 0, errors.Wrapf(ErrInvalidInput, "roll must be a positive integer, got %d", n)
	}

	return int32(n), nil
}

// ValidateMarks parses user supplied marks in the [0, 100] range.
func ValidateMarks(v string) (float32, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.Wrap(ErrInvalidInput, "marks are required")
	}

	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInput, "marks %q is not a number", v)
	}

	return checkMarks(float32(f))
}

// ValidateTopN parses the size of a top-N report.
func ValidateTopN(v string) (int, error) {
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInput, "N %q is not an integer", v)
	}

	if n <= 0 {
		return 0, errors.Wrapf(ErrInvalidInput, "N must be positive, got %d", n)
	}

	return n, nil
}

// ValidateGrade accepts an explicitly supplied grade. A blank value means
// the grade should be derived and is returned as "".
func ValidateGrade(v string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(v)))
	if g == "" {
		return "", nil
	}

	if !g.Valid() {
		return "", errors.Wrapf(ErrInvalidInput, "grade %q is not one of %v", v, Grades)
	}

	return g, nil
}

func checkMarks(m float32) (float32, error) {
	// NaN fails both comparisons
	if !(m >= 0 && m <= 100) {
		return 0, errors.Wrapf(ErrInvalidInput, "marks must be between 0 and 100, got %v", m)
	}
	return m, nil
}
