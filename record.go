package rollbook

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var ErrRecordCorrupted = errors.New("record block corrupted")

type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeF     Grade = "F"
)

// Grades lists every valid grade from the highest band to the lowest.
var Grades = []Grade{GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC, GradeF}

func (g Grade) String() string {
	return string(g)
}

func (g Grade) Valid() bool {
	for _, v := range Grades {
		if g == v {
			return true
		}
	}
	return false
}

// GradeOf derives a letter grade from marks. Lower bounds are inclusive.
func GradeOf(marks float32) Grade {
	switch {
	case marks >= 90:
		return GradeAPlus
	case marks >= 80:
		return GradeA
	case marks >= 70:
		return GradeBPlus
	case marks >= 60:
		return GradeB
	case marks >= 50:
		return GradeC
	default:
		return GradeF
	}
}

const (
	DefaultName    = "Unknown"
	DefaultSection = "-"
)

// Field widths of the on-disk block. They mirror the layout written by the
// original C program on little endian hosts, including the trailing
// struct padding.
const (
	rollWidth    = 4
	nameWidth    = 50
	sectionWidth = 10
	marksWidth   = 4
	gradeWidth   = 6
	paddingWidth = 2

	nameOffset    = rollWidth
	sectionOffset = nameOffset + nameWidth
	marksOffset   = sectionOffset + sectionWidth
	gradeOffset   = marksOffset + marksWidth

	// RecordSize is the size in bytes of one encoded record.
	RecordSize = gradeOffset + gradeWidth + paddingWidth

	MaxNameLen    = nameWidth - 1
	MaxSectionLen = sectionWidth - 1
)

type Record struct {
	Roll    int32
	Name    string
	Section string
	Marks   float32
	Grade   Grade
}

func (r Record) encode(buf *bytes.Buffer) {
	var block [RecordSize]byte
	binary.LittleEndian.PutUint32(block[0:rollWidth], uint32(r.Roll))
	putFixed(block[nameOffset:nameOffset+nameWidth], r.Name)
	putFixed(block[sectionOffset:sectionOffset+sectionWidth], r.Section)
	binary.LittleEndian.PutUint32(block[marksOffset:marksOffset+marksWidth], math.Float32bits(r.Marks))
	putFixed(block[gradeOffset:gradeOffset+gradeWidth], string(r.Grade))
	buf.Write(block[:])
}

func decodeRecord(block []byte) (Record, error) {
	if len(block) != RecordSize {
		return Record{}, errors.Wrapf(ErrRecordCorrupted, "expected %d bytes, got %d", RecordSize, len(block))
	}

	return Record{
		Roll:    int32(binary.LittleEndian.Uint32(block[0:rollWidth])),
		Name:    getFixed(block[nameOffset : nameOffset+nameWidth]),
		Section: getFixed(block[sectionOffset : sectionOffset+sectionWidth]),
		Marks:   math.Float32frombits(binary.LittleEndian.Uint32(block[marksOffset : marksOffset+marksWidth])),
		Grade:   Grade(getFixed(block[gradeOffset : gradeOffset+gradeWidth])),
	}, nil
}

// putFixed copies s into dst leaving at least one trailing NUL.
func putFixed(dst []byte, s string) {
	copy(dst, truncate(s, len(dst)-1))
}

// getFixed reads a NUL terminated string. Bytes after the first NUL are
// ignored, legacy files may carry leftovers there.
func getFixed(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
