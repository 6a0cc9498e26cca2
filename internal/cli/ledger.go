package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBorrowCommand creates the borrow command.
func NewBorrowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <book-id> <member-id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := rootOpts.client().BorrowBook(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd).record(record)
		},
	}
}

// NewReturnCommand creates the return command.
func NewReturnCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <record-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := rootOpts.client().ReturnBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd).record(record)
		},
	}
}

// NewBorrowingsCommand creates the borrowings command.
func NewBorrowingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrowings",
		Short: "List every borrow record with its book and member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := rootOpts.client().ListBorrowings(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd).borrowings(details)
		},
	}
}

// NewAvailableCommand creates the available command.
func NewAvailableCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List the books that can be borrowed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := rootOpts.client().ListAvailableBooks(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd).books(books)
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <record-id>",
		Short: "Show the journal of a borrow record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := rootOpts.client().History(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("history of %s: %w", args[0], err)
			}
			return newPrinter(rootOpts, cmd).history(entries)
		},
	}
}
