package rollbook

import (
	"log/slog"
	"os"
	"strings"

	"github.com/denismitr/rollbook/options"
	"github.com/pkg/errors"
)

var (
	ErrDuplicateRoll          = errors.New("roll number already exists")
	ErrCapacityExceeded       = errors.New("record limit reached")
	ErrConcurrentModification = errors.New("record file changed by another writer")
)

// Book composes the Store and the query functions into the operations a
// front-end offers. Every call works on a fresh snapshot of the file.
type Book struct {
	cfg   Config
	store *Store
	log   *slog.Logger
}

// Draft is the input of Insert. Empty Name and Section get defaults,
// an empty Grade is derived from Marks.
type Draft struct {
	Roll    int32
	Name    string
	Section string
	Marks   float32
	Grade   Grade
}

// Patch is the input of Update. Blank strings and a nil Marks keep the
// current value. An empty Grade is recomputed from the resulting marks.
type Patch struct {
	Name    string
	Section string
	Marks   *float32
	Grade   Grade
}

func New(cfg Config) (*Book, error) {
	cfg.applyDefaults()

	if info, err := os.Stat(cfg.FileName); err == nil && !info.Mode().IsRegular() {
		return nil, errors.Wrapf(ErrStorageFailed, "%s is not a regular file", cfg.FileName)
	}

	return &Book{
		cfg:   cfg,
		store: NewStore(cfg.FileName, cfg),
		log:   cfg.Logger,
	}, nil
}

func (b *Book) Store() *Store {
	return b.store
}

func (b *Book) Insert(d Draft) (Record, error) {
	if d.Roll <= 0 {
		return Record{}, errors.Wrapf(ErrInvalidInput, "roll must be a positive integer, got %d", d.Roll)
	}

	if _, err := checkMarks(d.Marks); err != nil {
		return Record{}, err
	}

	if d.Grade != "" && !d.Grade.Valid() {
		return Record{}, errors.Wrapf(ErrInvalidInput, "grade %q is not one of %v", d.Grade, Grades)
	}

	rec := Record{
		Roll:    d.Roll,
		Name:    orDefault(d.Name, DefaultName, MaxNameLen),
		Section: orDefault(d.Section, DefaultSection, MaxSectionLen),
		Marks:   d.Marks,
		Grade:   d.Grade,
	}

	if rec.Grade == "" {
		rec.Grade = GradeOf(rec.Marks)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	records, _, err := b.store.loadUnderLock()
	if err != nil {
		return Record{}, err
	}

	if indexOfRoll(records, rec.Roll) >= 0 {
		return Record{}, errors.Wrapf(ErrDuplicateRoll, "roll %d", rec.Roll)
	}

	if b.cfg.limited() && len(records) >= b.cfg.MaxRecords {
		return Record{}, errors.Wrapf(ErrCapacityExceeded, "%d records", b.cfg.MaxRecords)
	}

	if err := b.store.appendUnderLock(rec); err != nil {
		return Record{}, err
	}

	b.log.Info("record inserted", slog.Int("roll", int(rec.Roll)), slog.String("grade", rec.Grade.String()))

	return rec, nil
}

func (b *Book) Update(roll int32, p Patch) (Record, error) {
	if p.Marks != nil {
		if _, err := checkMarks(*p.Marks); err != nil {
			return Record{}, err
		}
	}

	if p.Grade != "" && !p.Grade.Valid() {
		return Record{}, errors.Wrapf(ErrInvalidInput, "grade %q is not one of %v", p.Grade, Grades)
	}

	var updated Record
	err := b.rewrite(func(records []Record) ([]Record, error) {
		i := indexOfRoll(records, roll)
		if i < 0 {
			return nil, errors.Wrapf(ErrRecordNotFound, "roll %d", roll)
		}

		rec := &records[i]
		if strings.TrimSpace(p.Name) != "" {
			rec.Name = truncate(p.Name, MaxNameLen)
		}

		if strings.TrimSpace(p.Section) != "" {
			rec.Section = truncate(p.Section, MaxSectionLen)
		}

		if p.Marks != nil {
			rec.Marks = *p.Marks
		}

		if p.Grade != "" {
			rec.Grade = p.Grade
		} else {
			rec.Grade = GradeOf(rec.Marks)
		}

		updated = *rec
		return records, nil
	})
	if err != nil {
		return Record{}, err
	}

	b.log.Info("record updated", slog.Int("roll", int(roll)), slog.String("grade", updated.Grade.String()))

	return updated, nil
}

func (b *Book) Delete(roll int32) (Record, error) {
	var removed Record
	err := b.rewrite(func(records []Record) ([]Record, error) {
		i := indexOfRoll(records, roll)
		if i < 0 {
			return nil, errors.Wrapf(ErrRecordNotFound, "roll %d", roll)
		}

		removed = records[i]
		return append(records[:i], records[i+1:]...), nil
	})
	if err != nil {
		return Record{}, err
	}

	b.log.Info("record deleted", slog.Int("roll", int(roll)))

	return removed, nil
}

// rewrite loads a snapshot, lets fn change it and writes the result back.
// Nothing is written when fn fails or when the file changed on disk since
// it was loaded.
func (b *Book) rewrite(fn func(records []Record) ([]Record, error)) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	records, digest, err := b.store.loadUnderLock()
	if err != nil {
		return err
	}

	changed, err := fn(records)
	if err != nil {
		return err
	}

	current, err := b.store.digestUnderLock()
	if err != nil {
		return err
	}

	if current != digest {
		return errors.Wrapf(ErrConcurrentModification, "file %s", b.store.path)
	}

	return b.store.replaceAllUnderLock(changed)
}

func (b *Book) Get(roll int32) (Record, error) {
	records, err := b.store.Load()
	if err != nil {
		return Record{}, err
	}

	return FindByRoll(records, roll)
}

func (b *Book) List(opts *options.ListOptions) ([]Record, error) {
	if opts == nil {
		opts = options.List()
	}

	if opts.Limit < 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "limit must not be negative, got %d", opts.Limit)
	}

	records, err := b.store.Load()
	if err != nil {
		return nil, err
	}

	var result []Record
	switch opts.O {
	case options.RollAsc:
		result = SortByRollAscending(records)
	case options.MarksDesc:
		result = SortByMarksDescending(records)
	case options.FileOrder, "":
		result = clone(records)
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unknown order %q", opts.O)
	}

	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}

	return result, nil
}

func (b *Book) Top(n int) ([]Record, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "N must be positive, got %d", n)
	}

	records, err := b.store.Load()
	if err != nil {
		return nil, err
	}

	return TopN(records, n)
}

func (b *Book) Stats() (Stats, error) {
	records, err := b.store.Load()
	if err != nil {
		return Stats{}, err
	}

	return Statistics(records)
}

func (b *Book) Count() (int, error) {
	records, err := b.store.Load()
	if err != nil {
		return 0, err
	}

	return Count(records), nil
}

func orDefault(v, def string, max int) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return truncate(v, max)
}
