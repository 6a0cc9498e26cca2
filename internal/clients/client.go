// Package clients is the HTTP client for the bookledger API.
package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	jsoniter "github.com/json-iterator/go"

	"bookledger/internal/catalog"
	"bookledger/internal/circulation"
	"bookledger/internal/errs"
	"bookledger/internal/journal"
	"bookledger/internal/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ circulation.Service = (*Client)(nil)

// Client talks to a bookledger server. Failures come back as *errs.Error
// with the kind the server reported, so callers can branch on errs.KindOf
// the same way they would against the in-process service.
type Client struct {
	baseURL     string
	http        *http.Client
	maxAttempts uint
	baseDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetry sets how many times a GET is attempted and the first backoff
// delay. Only Internal failures are retried.
func WithRetry(maxAttempts uint, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		baseDelay:   50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = 1
	}
	return c
}

func (c *Client) BorrowBook(ctx context.Context, bookID, memberID string) (*circulation.BorrowRecord, error) {
	var record circulation.BorrowRecord
	req := circulation.BorrowRequest{BookID: bookID, MemberID: memberID}
	if err := c.do(ctx, http.MethodPost, "/borrow", req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) ReturnBook(ctx context.Context, recordID string) (*circulation.BorrowRecord, error) {
	var record circulation.BorrowRecord
	if err := c.do(ctx, http.MethodPost, "/borrowings/"+url.PathEscape(recordID)+"/return", nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) ListBorrowings(ctx context.Context) ([]circulation.BorrowingDetails, error) {
	var details []circulation.BorrowingDetails
	if err := c.do(ctx, http.MethodGet, "/borrowings", nil, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (c *Client) ListAvailableBooks(ctx context.Context) ([]catalog.Book, error) {
	var books []catalog.Book
	if err := c.do(ctx, http.MethodGet, "/books/available", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) History(ctx context.Context, recordID string) ([]journal.Entry, error) {
	var entries []journal.Entry
	if err := c.do(ctx, http.MethodGet, "/borrowings/"+url.PathEscape(recordID)+"/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) CreateBook(ctx context.Context, in catalog.BookInput) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodPost, "/books", in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) CreateMember(ctx context.Context, in catalog.MemberInput) (*catalog.Member, error) {
	var member catalog.Member
	if err := c.do(ctx, http.MethodPost, "/members", in, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) GetMember(ctx context.Context, id string) (*catalog.Member, error) {
	var member catalog.Member
	if err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(id), nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// do sends one logical request. GETs that fail as Internal are retried
// with jittered exponential backoff; POSTs are sent once, since a lost
// response cannot tell whether the server committed.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return errs.Internalf(err, "failed to encode request")
		}
	}

	attempts := c.maxAttempts
	if method != http.MethodGet {
		attempts = 1
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.roundTrip(ctx, method, path, payload, out)
		if err != nil && !errs.Is(err, errs.Internal) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(attempts))

	// Retry hands back the wrapper untouched when the last try is permanent.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return errs.OrInternal(err, "%s %s", method, path)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.Internalf(err, "failed to build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Internalf(err, "failed to reach server")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Internalf(err, "failed to read response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Internalf(err, "failed to decode response")
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body transport.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = fmt.Sprintf("unexpected status code: %d", status)
	}

	kind, ok := errs.ParseKind(body.Code)
	if !ok {
		kind = transport.KindForStatus(status)
	}
	return &errs.Error{Kind: kind, Message: body.Error}
}
