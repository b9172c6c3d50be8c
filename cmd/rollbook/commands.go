package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/denismitr/rollbook"
	"github.com/denismitr/rollbook/internal/auth"
	"github.com/denismitr/rollbook/internal/storage"
	"github.com/denismitr/rollbook/internal/storage/jsonstorage"
	"github.com/denismitr/rollbook/options"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func (a *app) insertCmd() *cobra.Command {
	var roll, name, section, marks, grade string

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Add a student record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := draftFromFlags(roll, name, section, marks, grade)
			if err != nil {
				return err
			}

			rec, err := a.book.Insert(d)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Record added: roll %d, grade %s\n", rec.Roll, rec.Grade)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&roll, "roll", "", "roll number (positive integer)")
	f.StringVar(&name, "name", "", "student name")
	f.StringVar(&section, "section", "", "section")
	f.StringVar(&marks, "marks", "", "marks between 0 and 100")
	f.StringVar(&grade, "grade", "", "explicit grade, derived from marks when empty")
	_ = cmd.MarkFlagRequired("roll")
	_ = cmd.MarkFlagRequired("marks")

	return cmd
}

func draftFromFlags(roll, name, section, marks, grade string) (rollbook.Draft, error) {
	r, err := rollbook.ValidateRoll(roll)
	if err != nil {
		return rollbook.Draft{}, err
	}

	m, err := rollbook.ValidateMarks(marks)
	if err != nil {
		return rollbook.Draft{}, err
	}

	g, err := rollbook.ValidateGrade(grade)
	if err != nil {
		return rollbook.Draft{}, err
	}

	return rollbook.Draft{Roll: r, Name: name, Section: section, Marks: m, Grade: g}, nil
}

func (a *app) listCmd() *cobra.Command {
	var sort string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseOrder(sort)
			if err != nil {
				return err
			}

			records, err := a.book.List(options.List().SetOrder(order).SetLimit(limit))
			if err != nil {
				return err
			}

			return renderTable(a.out, records)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", "", "order by roll or marks, file order when empty")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most n records")

	return cmd
}

func parseOrder(s string) (options.Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "file":
		return options.FileOrder, nil
	case "roll":
		return options.RollAsc, nil
	case "marks":
		return options.MarksDesc, nil
	}
	return "", errors.Wrapf(rollbook.ErrInvalidInput, "sort must be roll or marks, got %q", s)
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <roll>",
		Short: "Find a record by roll number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roll, err := rollbook.ValidateRoll(args[0])
			if err != nil {
				return err
			}

			rec, err := a.book.Get(roll)
			if err != nil {
				return err
			}

			return renderTable(a.out, []rollbook.Record{rec})
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	var name, section, marks, grade string

	cmd := &cobra.Command{
		Use:   "update <roll>",
		Short: "Change a record, omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Require("update", auth.RoleAdmin); err != nil {
				return err
			}

			roll, err := rollbook.ValidateRoll(args[0])
			if err != nil {
				return err
			}

			p := rollbook.Patch{Name: name, Section: section}
			if cmd.Flags().Changed("marks") {
				m, err := rollbook.ValidateMarks(marks)
				if err != nil {
					return err
				}
				p.Marks = &m
			}

			if p.Grade, err = rollbook.ValidateGrade(grade); err != nil {
				return err
			}

			rec, err := a.book.Update(roll, p)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Record updated: roll %d, grade %s\n", rec.Roll, rec.Grade)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.StringVar(&section, "section", "", "new section")
	f.StringVar(&marks, "marks", "", "new marks between 0 and 100")
	f.StringVar(&grade, "grade", "", "explicit grade, recomputed from marks when empty")

	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <roll>",
		Short: "Remove a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Require("delete", auth.RoleAdmin); err != nil {
				return err
			}

			roll, err := rollbook.ValidateRoll(args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Fprintf(a.out, "Delete roll %d? [y/N] ", roll)
				answer, err := a.readLine()
				if err != nil && err != io.EOF {
					return err
				}

				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}

			if _, err := a.book.Delete(roll); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Record deleted: roll %d\n", roll)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func (a *app) sortCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sort <roll|marks>",
		Short:     "Show all records in roll or marks order",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"roll", "marks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseOrder(args[0])
			if err != nil {
				return err
			}

			if order == options.FileOrder {
				return errors.Wrapf(rollbook.ErrInvalidInput, "sort must be roll or marks, got %q", args[0])
			}

			records, err := a.book.List(options.List().SetOrder(order))
			if err != nil {
				return err
			}

			return renderTable(a.out, records)
		},
	}
}

func (a *app) topCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top <n>",
		Short: "Show the n records with the highest marks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rollbook.ValidateTopN(args[0])
			if err != nil {
				return err
			}

			records, err := a.book.Top(n)
			if err != nil {
				return err
			}

			return renderTable(a.out, records)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show average, highest and lowest marks and the grade distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.book.Stats()
			if errors.Is(err, rollbook.ErrEmptySnapshot) {
				fmt.Fprintln(a.out, "No records.")
				return nil
			}

			if err != nil {
				return err
			}

			return renderStats(a.out, st)
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.book.Count()
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Total records: %d\n", n)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all records as JSON lines to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.book.List(nil)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return jsonstorage.Write(a.out, records)
			}

			f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, storage.DefaultFilePerm)
			if err != nil {
				return errors.Wrapf(err, "could not create %s", args[0])
			}

			if err := jsonstorage.Write(f, records); err != nil {
				_ = f.Close()
				return err
			}

			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "could not close %s", args[0])
			}

			fmt.Fprintf(a.errOut, "Exported %d records to %s\n", len(records), args[0])
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Insert records from a JSON lines file, existing rolls are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Require("import", auth.RoleAdmin); err != nil {
				return err
			}

			if !storage.FileExists(args[0]) {
				return errors.Wrapf(rollbook.ErrInvalidInput, "import file %s does not exist", args[0])
			}

			f, closer, err := storage.OpenFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not open %s", args[0])
			}
			defer closer()

			drafts, err := jsonstorage.Read(f)
			if err != nil {
				return err
			}

			var added, skipped int
			for _, d := range drafts {
				_, err := a.book.Insert(d)
				if errors.Is(err, rollbook.ErrDuplicateRoll) {
					fmt.Fprintf(a.errOut, "Skipped roll %d: already exists\n", d.Roll)
					skipped++
					continue
				}

				if err != nil {
					return errors.Wrapf(err, "import stopped after %d records", added)
				}
				added++
			}

			fmt.Fprintf(a.out, "Imported %d records, skipped %d\n", added, skipped)
			return nil
		},
	}
}

func (a *app) hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:         "hash-password",
		Short:       "Read a password from stdin and print its bcrypt hash for ROLLBOOK_USERS",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipAuth: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readLine()
			if err != nil {
				return errors.Wrap(err, "could not read password")
			}

			hash, err := auth.HashPassword(password, cost)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
