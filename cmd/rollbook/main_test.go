package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/denismitr/rollbook"
	"github.com/denismitr/rollbook/internal/auth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type cli struct {
	t    *testing.T
	dir  string
	file string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	for _, k := range []string{"ROLLBOOK_USERS", "ROLLBOOK_USER", "ROLLBOOK_PASSWORD", "ROLLBOOK_FILE", "ROLLBOOK_MAX_RECORDS"} {
		t.Setenv(k, "")
	}
	t.Setenv("ROLLBOOK_NO_SYNC", "true")

	dir := t.TempDir()
	return &cli{t: t, dir: dir, file: filepath.Join(dir, "student.txt")}
}

func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()

	var out, errOut bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(append([]string{"--file", c.file, "--env-file", filepath.Join(c.dir, "missing.env")}, args...))

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, errOut, err := c.run("", args...)
	require.NoError(c.t, err, errOut)
	return out
}

func (c *cli) seed() {
	c.t.Helper()

	c.mustRun("insert", "--roll", "10", "--name", "Ann", "--section", "A", "--marks", "88")
	c.mustRun("insert", "--roll", "4", "--name", "Bob", "--section", "B", "--marks", "67.5")
	c.mustRun("insert", "--roll", "7", "--name", "Cid", "--marks", "88")
}

func TestCLI_Records(t *testing.T) {
	t.Run("insert derives the grade and list keeps file order", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("list")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], "ROLL")
		assert.True(t, strings.HasPrefix(lines[1], "10"))
		assert.True(t, strings.HasPrefix(lines[2], "4"))
		assert.True(t, strings.HasPrefix(lines[3], "7"))
		assert.Contains(t, lines[2], "67.50")
		assert.Contains(t, lines[2], "B")
		assert.Contains(t, lines[3], "-")
	})

	t.Run("sort by marks keeps encounter order of equal marks", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("sort", "marks")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[1], "10"))
		assert.True(t, strings.HasPrefix(lines[2], "7"))
		assert.True(t, strings.HasPrefix(lines[3], "4"))
	})

	t.Run("list with roll order and a limit", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("list", "--sort", "roll", "--limit", "2")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[1], "4"))
		assert.True(t, strings.HasPrefix(lines[2], "7"))
	})

	t.Run("duplicate roll is rejected", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		_, _, err := c.run("", "insert", "--roll", "4", "--marks", "10")
		require.Error(t, err)
		assert.True(t, errors.Is(err, rollbook.ErrDuplicateRoll))
		assert.True(t, strings.HasPrefix(describe(err), "Duplicate"))
	})

	t.Run("invalid input never reaches the file", func(t *testing.T) {
		c := newCLI(t)

		_, _, err := c.run("", "insert", "--roll=-3", "--marks", "10")
		assert.True(t, errors.Is(err, rollbook.ErrInvalidInput))

		_, _, err = c.run("", "insert", "--roll", "3", "--marks", "101")
		assert.True(t, errors.Is(err, rollbook.ErrInvalidInput))

		_, _, err = c.run("", "insert", "--roll", "3", "--marks", "50", "--grade", "Z")
		assert.True(t, errors.Is(err, rollbook.ErrInvalidInput))

		_, err = os.Stat(c.file)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("search prints the record or reports not found", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("search", "7")
		assert.Contains(t, out, "Cid")

		_, _, err := c.run("", "search", "99")
		assert.True(t, errors.Is(err, rollbook.ErrRecordNotFound))
	})

	t.Run("update recomputes the grade", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("update", "4", "--marks", "91")
		assert.Contains(t, out, "grade A+")

		out = c.mustRun("search", "4")
		assert.Contains(t, out, "Bob")
		assert.Contains(t, out, "91.00")
	})

	t.Run("delete asks for confirmation", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out, _, err := c.run("n\n", "delete", "4")
		require.NoError(t, err)
		assert.Contains(t, out, "Cancelled.")
		assert.Contains(t, c.mustRun("count"), "Total records: 3")

		out, _, err = c.run("y\n", "delete", "4")
		require.NoError(t, err)
		assert.Contains(t, out, "Record deleted: roll 4")

		c.mustRun("delete", "--yes", "10")
		assert.Contains(t, c.mustRun("count"), "Total records: 1")
	})

	t.Run("top and stats", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		out := c.mustRun("top", "1")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[1], "10"))

		_, _, err := c.run("", "top", "0")
		assert.True(t, errors.Is(err, rollbook.ErrInvalidInput))

		out = c.mustRun("stats")
		assert.Contains(t, out, "Records:  3")
		assert.Contains(t, out, "81.17")
		assert.Contains(t, out, "88.00")
		assert.Contains(t, out, "67.50")
		assert.Contains(t, out, "F/others")
	})

	t.Run("stats on an empty file", func(t *testing.T) {
		c := newCLI(t)
		assert.Equal(t, "No records.\n", c.mustRun("stats"))
		assert.Equal(t, "No records.\n", c.mustRun("list"))
	})
}

func TestCLI_ExportImport(t *testing.T) {
	t.Run("records survive an export and import into an empty file", func(t *testing.T) {
		c := newCLI(t)
		c.seed()

		dump := filepath.Join(c.dir, "dump.jsonl")
		c.mustRun("export", dump)
		stdout := c.mustRun("export")

		b, err := os.ReadFile(dump)
		require.NoError(t, err)
		assert.Equal(t, stdout, string(b))
		assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 3)

		c.file = filepath.Join(c.dir, "copy.txt")
		out := c.mustRun("import", dump)
		assert.Contains(t, out, "Imported 3 records, skipped 0")

		out, errOut, err := c.run("", "import", dump)
		require.NoError(t, err)
		assert.Contains(t, out, "Imported 0 records, skipped 3")
		assert.Contains(t, errOut, "Skipped roll 10")

		assert.Equal(t, stdout, c.mustRun("export"))
	})
}

func TestCLI_Auth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	setUsers := func(c *cli) {
		c.t.Setenv("ROLLBOOK_USERS", "root:admin:"+string(hash)+",mary:teacher:"+string(hash))
	}

	t.Run("teacher can read but not change", func(t *testing.T) {
		c := newCLI(t)
		c.seed()
		setUsers(c)
		t.Setenv("ROLLBOOK_PASSWORD", "secret")

		out, _, err := c.run("", "--user", "mary", "count")
		require.NoError(t, err)
		assert.Contains(t, out, "Total records: 3")

		_, _, err = c.run("", "--user", "mary", "delete", "--yes", "4")
		assert.True(t, errors.Is(err, auth.ErrForbidden))

		_, _, err = c.run("", "--user", "mary", "update", "4", "--marks", "1")
		assert.True(t, errors.Is(err, auth.ErrForbidden))

		_, _, err = c.run("", "--user", "root", "delete", "--yes", "4")
		require.NoError(t, err)
	})

	t.Run("password is prompted when not in the environment", func(t *testing.T) {
		c := newCLI(t)
		setUsers(c)

		_, errOut, err := c.run("secret\n", "--user", "root", "count")
		require.NoError(t, err)
		assert.Contains(t, errOut, "Password:")

		_, _, err = c.run("wrong\n", "--user", "root", "count")
		assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
		assert.Equal(t, "Invalid credentials.", describe(err))
	})

	t.Run("hash-password output is accepted as a credential", func(t *testing.T) {
		c := newCLI(t)

		out, _, err := c.run("s3cret\n", "hash-password", "--cost", "4")
		require.NoError(t, err)

		h := strings.TrimSpace(out)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")))
	})
}
