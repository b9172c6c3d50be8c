// Package jsonstorage converts records to and from JSON lines, one object
// per record, for moving data in and out of the fixed width store.
package jsonstorage

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"github.com/denismitr/rollbook"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var ErrLineInvalid = errors.New("json line is invalid")

type line struct {
	Roll    int32   `json:"roll"`
	Name    string  `json:"name"`
	Section string  `json:"section"`
	Marks   float32 `json:"marks"`
	Grade   string  `json:"grade"`
}

// Write encodes every record as one JSON object per line.
func Write(w io.Writer, records []rollbook.Record) error {
	bw := bufio.NewWriter(w)
	e := json.NewEncoder(bw)

	for _, r := range records {
		if err := e.Encode(line{
			Roll:    r.Roll,
			Name:    r.Name,
			Section: r.Section,
			Marks:   r.Marks,
			Grade:   r.Grade.String(),
		}); err != nil {
			return errors.Wrapf(err, "could not encode roll %d", r.Roll)
		}
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "could not flush json lines")
	}

	return nil
}

// Read decodes JSON lines into drafts ready for insertion. Blank lines are
// skipped. Roll and marks are mandatory, the remaining fields may be absent.
func Read(r io.Reader) ([]rollbook.Draft, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read json lines")
	}

	var drafts []rollbook.Draft
	var parseErr error
	n := 0

	gjson.ForEachLine(string(b), func(ln gjson.Result) bool {
		n++
		d, err := draftFromLine(ln)
		if err != nil {
			parseErr = errors.Wrapf(err, "line %d", n)
			return false
		}

		drafts = append(drafts, d)
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	return drafts, nil
}

func draftFromLine(ln gjson.Result) (rollbook.Draft, error) {
	if !ln.IsObject() {
		return rollbook.Draft{}, errors.Wrapf(ErrLineInvalid, "expected an object, got %q", ln.Raw)
	}

	roll := ln.Get("roll")
	if !roll.Exists() || roll.Type != gjson.Number {
		return rollbook.Draft{}, errors.Wrap(ErrLineInvalid, "roll is missing or not a number")
	}

	if roll.Num != math.Trunc(roll.Num) || roll.Num > math.MaxInt32 || roll.Num < math.MinInt32 {
		return rollbook.Draft{}, errors.Wrapf(ErrLineInvalid, "roll %s is not a 32 bit integer", roll.Raw)
	}

	marks := ln.Get("marks")
	if !marks.Exists() || marks.Type != gjson.Number {
		return rollbook.Draft{}, errors.Wrap(ErrLineInvalid, "marks are missing or not a number")
	}

	grade, err := rollbook.ValidateGrade(ln.Get("grade").String())
	if err != nil {
		return rollbook.Draft{}, err
	}

	return rollbook.Draft{
		Roll:    int32(roll.Int()),
		Name:    ln.Get("name").String(),
		Section: ln.Get("section").String(),
		Marks:   float32(marks.Float()),
		Grade:   grade,
	}, nil
}
