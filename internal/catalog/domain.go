package catalog

// Book is a title held by the library. IsAvailable mirrors whether the book
// has an open borrow record; only the borrow ledger changes it.
type Book struct {
	ID            string `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	Author        string `json:"author" db:"author"`
	PublishedDate Date   `json:"published_date" db:"published_date"`
	ISBN          string `json:"isbn" db:"isbn"`
	IsAvailable   bool   `json:"is_available" db:"is_available"`
}

// Member is a registered library user.
type Member struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	JoinDate Date   `json:"join_date" db:"join_date"`
}

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	PublishedDate string `json:"published_date"`
	ISBN          string `json:"isbn"`
}

// MemberInput carries the editable fields of a member.
type MemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
