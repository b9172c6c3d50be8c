package rollbook

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/denismitr/rollbook/internal/storage"
	"github.com/pkg/errors"
)

var ErrStorageFailed = errors.New("storage error")

// Store persists the full record set as back to back fixed size blocks
// in a single file with no header.
type Store struct {
	path   string
	noSync bool
	log    *slog.Logger
	mu     sync.Mutex
}

func NewStore(path string, cfg Config) *Store {
	cfg.FileName = path
	cfg.applyDefaults()

	return &Store{
		path:   cfg.FileName,
		noSync: cfg.NoSync,
		log:    cfg.Logger.With(slog.String("file", cfg.FileName)),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads every record in file order. A missing file is an empty store.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.loadUnderLock()
	return records, err
}

func (s *Store) loadUnderLock() ([]Record, uint64, error) {
	f, fClose, err := storage.OpenFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, 0, nil
		}
		return nil, 0, errors.Wrapf(ErrStorageFailed, "could not open %s: %v", s.path, err)
	}

	defer fClose()

	size, err := storage.FileSize(f)
	if err != nil {
		return nil, 0, errors.Wrap(ErrStorageFailed, err.Error())
	}

	records := make([]Record, 0, size/RecordSize)
	digest := xxhash.New()
	r := bufio.NewReader(io.TeeReader(f, digest))
	block := make([]byte, RecordSize)

	for {
		n, err := io.ReadFull(r, block)
		if err != nil {
			if err == io.EOF {
				break
			}

			if err == io.ErrUnexpectedEOF {
				s.log.Warn("ignoring torn record at the end of file", slog.Int("bytes", n))
				break
			}

			return nil, 0, errors.Wrapf(ErrStorageFailed, "could not read %s: %v", s.path, err)
		}

		rec, err := decodeRecord(block)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	s.log.Debug("records loaded", slog.Int("count", len(records)))

	return records, digest.Sum64(), nil
}

// Digest returns a hash of the file contents, zero if the file is missing.
func (s *Store) Digest() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.digestUnderLock()
}

func (s *Store) digestUnderLock() (uint64, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(ErrStorageFailed, "could not read %s: %v", s.path, err)
	}

	return xxhash.Sum64(b), nil
}

// Append writes one record at the end of the file, creating it if absent.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendUnderLock(rec)
}

func (s *Store) appendUnderLock(rec Record) error {
	f, fClose, err := storage.OpenAppend(s.path, storage.DefaultFilePerm)
	if err != nil {
		return errors.Wrap(ErrStorageFailed, err.Error())
	}

	defer fClose()

	size, err := storage.FileSize(f)
	if err != nil {
		return errors.Wrap(ErrStorageFailed, err.Error())
	}

	if torn := size % RecordSize; torn != 0 {
		// a crash mid append left a partial block, drop it so the new
		// record starts on a block boundary
		size -= torn
		if err := f.Truncate(size); err != nil {
			return errors.Wrapf(ErrStorageFailed, "could not truncate torn record in %s: %v", s.path, err)
		}
		s.log.Warn("truncated torn record before append", slog.Int64("bytes", torn))
	}

	buf := &bytes.Buffer{}
	rec.encode(buf)

	n, err := f.Write(buf.Bytes())
	if err != nil {
		if n > 0 {
			// partial write occurred, must rollback the file
			if tErr := f.Truncate(size); tErr != nil {
				return errors.Wrapf(ErrStorageFailed, "could not rollback partial write to %s: %v", s.path, tErr)
			}
		}
		return errors.Wrapf(ErrStorageFailed, "could not append to %s: %v", s.path, err)
	}

	if !s.noSync {
		if err := f.Sync(); err != nil {
			return errors.Wrapf(ErrStorageFailed, "could not sync %s: %v", s.path, err)
		}
	}

	s.log.Debug("record appended", slog.Int("roll", int(rec.Roll)))

	return nil
}

// ReplaceAll rewrites the whole file with records in the given order.
// The previous contents survive any failure.
func (s *Store) ReplaceAll(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replaceAllUnderLock(records)
}

func (s *Store) replaceAllUnderLock(records []Record) error {
	buf := &bytes.Buffer{}
	buf.Grow(len(records) * RecordSize)
	for i := range records {
		records[i].encode(buf)
	}

	if err := storage.WriteAndSwap(s.path, buf.Bytes(), storage.DefaultFilePerm); err != nil {
		return errors.Wrap(ErrStorageFailed, err.Error())
	}

	s.log.Debug("records rewritten", slog.Int("count", len(records)))

	return nil
}
