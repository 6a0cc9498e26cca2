package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"bookledger/internal/catalog"
	"bookledger/internal/circulation"
	"bookledger/internal/errs"
	"bookledger/internal/journal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // transport, storage or usage failure
	ExitRejected = 2 // the server refused the request (not found, unavailable, ...)
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var tagged *errs.Error
	if errors.As(err, &tagged) && tagged.Kind != errs.Internal {
		return ExitRejected
	}
	return ExitFailure
}

// printer writes command results as JSON or as aligned text columns.
type printer struct {
	format string
	out    io.Writer
}

func newPrinter(opts *RootOptions, cmd *cobra.Command) *printer {
	return &printer{format: opts.Format, out: cmd.OutOrStdout()}
}

func (p *printer) writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p *printer) table(header string, rows func(w io.Writer)) error {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func (p *printer) record(r *circulation.BorrowRecord) error {
	if p.format == "json" {
		return p.writeJSON(r)
	}
	return p.table("ID\tBOOK\tMEMBER\tBORROWED\tRETURNED\tSTATUS", func(w io.Writer) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.BookID, r.MemberID, r.BorrowDate, returnDate(r.ReturnDate), r.Status)
	})
}

func (p *printer) borrowings(details []circulation.BorrowingDetails) error {
	if p.format == "json" {
		return p.writeJSON(details)
	}
	return p.table("ID\tTITLE\tMEMBER\tBORROWED\tRETURNED\tSTATUS", func(w io.Writer) {
		for _, d := range details {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				d.Record.ID, d.Book.Title, d.Member.Name, d.Record.BorrowDate,
				returnDate(d.Record.ReturnDate), d.Record.Status)
		}
	})
}

func (p *printer) books(books []catalog.Book) error {
	if p.format == "json" {
		return p.writeJSON(books)
	}
	return p.table("ID\tTITLE\tAUTHOR\tISBN", func(w io.Writer) {
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.ISBN)
		}
	})
}

func (p *printer) history(entries []journal.Entry) error {
	if p.format == "json" {
		return p.writeJSON(entries)
	}
	return p.table("VERSION\tEVENT\tAT", func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Version, e.EventType, e.CreatedAt.Format(time.RFC3339))
		}
	})
}

func returnDate(d *catalog.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
