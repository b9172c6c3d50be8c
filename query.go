package rollbook

import (
	"math"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"
)

var ErrRecordNotFound = errors.New("record not found")
var ErrEmptySnapshot = errors.New("snapshot is empty")

const castPanic = "how could an ordering tree item not be of type *ordered"

// ordered carries the position a record had in the snapshot so that
// ties in the ordering tree are broken by encounter order.
type ordered struct {
	seq int
	rec *Record
}

func byRoll(a, b interface{}) bool {
	i1, i2 := mustOrdered(a), mustOrdered(b)
	if i1.rec.Roll != i2.rec.Roll {
		return i1.rec.Roll < i2.rec.Roll
	}
	return i1.seq < i2.seq
}

func byMarksDesc(a, b interface{}) bool {
	m1, m2 := marksKey(mustOrdered(a).rec.Marks), marksKey(mustOrdered(b).rec.Marks)
	if m1 > m2 {
		return true
	}
	if m1 < m2 {
		return false
	}
	return mustOrdered(a).seq < mustOrdered(b).seq
}

// marksKey sorts a NaN read from a damaged file below every real score.
func marksKey(m float32) float64 {
	if m != m {
		return math.Inf(-1)
	}
	return float64(m)
}

func mustOrdered(i interface{}) *ordered {
	o, ok := i.(*ordered)
	if !ok {
		panic(castPanic)
	}
	return o
}

func sortWith(snapshot []Record, less func(a, b interface{}) bool) []Record {
	tr := btree.NewNonConcurrent(less)
	for i := range snapshot {
		tr.Set(&ordered{seq: i, rec: &snapshot[i]})
	}

	result := make([]Record, 0, len(snapshot))
	tr.Ascend(nil, func(item interface{}) bool {
		result = append(result, *mustOrdered(item).rec)
		return true
	})

	return result
}

// FindByRoll returns the first record with the given roll in snapshot order.
func FindByRoll(snapshot []Record, roll int32) (Record, error) {
	if i := indexOfRoll(snapshot, roll); i >= 0 {
		return snapshot[i], nil
	}

	return Record{}, errors.Wrapf(ErrRecordNotFound, "roll %d", roll)
}

func indexOfRoll(snapshot []Record, roll int32) int {
	for i := range snapshot {
		if snapshot[i].Roll == roll {
			return i
		}
	}
	return -1
}

// SortByRollAscending returns a new slice ordered by roll, equal rolls
// keep their relative order.
func SortByRollAscending(snapshot []Record) []Record {
	return sortWith(snapshot, byRoll)
}

// SortByMarksDescending returns a new slice ordered by marks from the
// highest, equal marks keep their relative order.
func SortByMarksDescending(snapshot []Record) []Record {
	return sortWith(snapshot, byMarksDesc)
}

// TopN returns the first min(n, len(snapshot)) records by marks.
func TopN(snapshot []Record, n int) ([]Record, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "N must be positive, got %d", n)
	}

	sorted := SortByMarksDescending(snapshot)
	if n < len(sorted) {
		sorted = sorted[:n]
	}

	return sorted, nil
}

type Stats struct {
	Count   int
	Average float64
	Max     float32
	Min     float32
	// Histogram holds a counter for every grade in Grades. Grades outside
	// the known set are counted as F.
	Histogram map[Grade]int
}

func Statistics(snapshot []Record) (Stats, error) {
	if len(snapshot) == 0 {
		return Stats{}, ErrEmptySnapshot
	}

	st := Stats{
		Count:     len(snapshot),
		Max:       snapshot[0].Marks,
		Min:       snapshot[0].Marks,
		Histogram: make(map[Grade]int, len(Grades)),
	}

	for _, g := range Grades {
		st.Histogram[g] = 0
	}

	var total float64
	for _, r := range snapshot {
		total += float64(r.Marks)

		if r.Marks > st.Max {
			st.Max = r.Marks
		}

		if r.Marks < st.Min {
			st.Min = r.Marks
		}

		if r.Grade.Valid() {
			st.Histogram[r.Grade]++
		} else {
			st.Histogram[GradeF]++
		}
	}

	st.Average = total / float64(st.Count)

	return st, nil
}

func Count(snapshot []Record) int {
	return len(snapshot)
}

// clone hands out a copy so callers can not mutate a snapshot
// that is still in use.
func clone(snapshot []Record) []Record {
	cp := make([]Record, 0, len(snapshot))
	if err := copier.Copy(&cp, &snapshot); err != nil {
		panic("could not copy snapshot: " + err.Error())
	}

	return cp
}
