package circulation

import (
	"bookledger/internal/catalog"
)

// Status is the lifecycle state of a borrow record.
type Status string

const (
	StatusBorrowed Status = "BORROWED"
	StatusReturned Status = "RETURNED"
)

// BorrowRecord is one loan of one book to one member. ReturnDate is nil
// while the record is BORROWED.
type BorrowRecord struct {
	ID         string        `json:"id" db:"id"`
	BookID     string        `json:"book_id" db:"book_id"`
	MemberID   string        `json:"member_id" db:"member_id"`
	BorrowDate catalog.Date  `json:"borrow_date" db:"borrow_date"`
	ReturnDate *catalog.Date `json:"return_date" db:"return_date"`
	Status     Status        `json:"status" db:"status"`
}

// BorrowingDetails is a borrow record with the book and member it refers to.
type BorrowingDetails struct {
	Record BorrowRecord   `json:"record"`
	Book   catalog.Book   `json:"book"`
	Member catalog.Member `json:"member"`
}

// Journal event types.
const (
	EventBookBorrowed = "BookBorrowed"
	EventBookReturned = "BookReturned"
)

// BookBorrowedEvent is journaled when a record is created.
type BookBorrowedEvent struct {
	RecordID   string       `json:"record_id"`
	BookID     string       `json:"book_id"`
	MemberID   string       `json:"member_id"`
	BorrowDate catalog.Date `json:"borrow_date"`
}

// BookReturnedEvent is journaled when a record is closed.
type BookReturnedEvent struct {
	RecordID   string       `json:"record_id"`
	BookID     string       `json:"book_id"`
	MemberID   string       `json:"member_id"`
	ReturnDate catalog.Date `json:"return_date"`
}
