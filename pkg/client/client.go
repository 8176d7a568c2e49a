// Package client implements the view-state side of the item API: it issues
// requests against an item store server and reconciles the responses into a
// local copy of the item collection, a form draft, and transient status
// messages. Rendering that state is left to the caller.
//
// The server is always the source of truth: no mutation is applied locally
// before the server confirms it, and every successful mutation is followed by
// a full refresh of the collection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrMutationInFlight is returned when a mutation is attempted while another
// one has not yet resolved. The caller retries once the first settles.
var ErrMutationInFlight = errors.New("client: another mutation is in flight")

// APIError is a failure reported by the server through the response envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}

// Item is the client's view of a stored item.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FormFields holds the create/update form draft.
type FormFields struct {
	Name        string
	Description string
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the logger used for request failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMessageTTL overrides the window after which transient messages
// auto-clear. The default is 3 seconds.
func WithMessageTTL(ttl time.Duration) Option {
	return func(c *Client) { c.messageTTL = ttl }
}

// WithConfirm installs the confirmation hook consulted before a delete is
// issued. Wire the UI's confirm dialog here; when the hook returns false the
// delete is not sent. Without a hook deletes proceed unprompted.
func WithConfirm(confirm func(Item) bool) Option {
	return func(c *Client) { c.confirm = confirm }
}

// Client holds the local view state for one item store server.
type Client struct {
	baseURL    string
	httpc      *http.Client
	log        zerolog.Logger
	messageTTL time.Duration
	confirm    func(Item) bool

	mu             sync.Mutex
	items          []Item
	form           FormFields
	editingID      string
	errorMessage   string
	successMessage string
	errGen         int
	okGen          int
	mutating       bool
}

// New creates a client against the given base URL (scheme://host[:port],
// without the /api/items suffix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpc:      &http.Client{},
		log:        zerolog.Nop(),
		messageTTL: 3 * time.Second,
		confirm:    func(Item) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches the full collection and replaces the local copy wholesale.
// On failure the prior items are left untouched so the view stays
// stale-but-available.
func (c *Client) Refresh(ctx context.Context) error {
	env, err := c.do(ctx, http.MethodGet, "/api/items", nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh failed")
		c.setError("Failed to fetch items. Make sure the backend server is running.")
		return err
	}

	var fetched []Item
	if err := json.Unmarshal(env.Data, &fetched); err != nil {
		c.setError("Failed to fetch items. Make sure the backend server is running.")
		return fmt.Errorf("client: decode items: %w", err)
	}

	c.mu.Lock()
	c.items = fetched
	c.errorMessage = ""
	c.errGen++
	c.mu.Unlock()
	return nil
}

// SubmitForm creates a new item from the form draft, or updates the item
// being edited when an edit is in progress. On success the form is cleared
// and the collection refreshed; on failure the draft is retained so the user
// can correct and resubmit.
func (c *Client) SubmitForm(ctx context.Context) error {
	if err := c.beginMutation(); err != nil {
		return err
	}
	defer c.endMutation()

	c.mu.Lock()
	editingID := c.editingID
	form := c.form
	c.mu.Unlock()

	var err error
	if editingID != "" {
		body := updateRequest{Name: &form.Name, Description: &form.Description}
		_, err = c.do(ctx, http.MethodPut, "/api/items/"+editingID, body)
	} else {
		_, err = c.do(ctx, http.MethodPost, "/api/items", createRequest{
			Name:        form.Name,
			Description: form.Description,
		})
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("submit failed")
		c.setError("Failed to save item. Please check your input.")
		return err
	}

	c.mu.Lock()
	c.form = FormFields{}
	wasEditing := editingID != ""
	c.editingID = ""
	c.mu.Unlock()

	if wasEditing {
		c.setSuccess("Item updated successfully!")
	} else {
		c.setSuccess("Item created successfully!")
	}

	return c.Refresh(ctx)
}

// BeginEdit copies the item's fields into the form draft and marks it as the
// edit target. It works on the already-held local copy; no fetch is issued.
func (c *Client) BeginEdit(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormFields{Name: item.Name, Description: item.Description}
	c.editingID = item.ID
}

// CancelEdit discards the form draft and leaves edit mode.
func (c *Client) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormFields{}
	c.editingID = ""
}

// ToggleComplete flips the item's completed flag on the server and refreshes.
// The local copy is not flipped optimistically.
func (c *Client) ToggleComplete(ctx context.Context, item Item) error {
	if err := c.beginMutation(); err != nil {
		return err
	}
	defer c.endMutation()

	completed := !item.Completed
	body := updateRequest{
		Name:        &item.Name,
		Description: &item.Description,
		Completed:   &completed,
	}
	if _, err := c.do(ctx, http.MethodPut, "/api/items/"+item.ID, body); err != nil {
		c.log.Warn().Err(err).Str("id", item.ID).Msg("toggle failed")
		c.setError("Failed to update item status.")
		return err
	}

	return c.Refresh(ctx)
}

// Delete asks the confirmation hook, then removes the item on the server and
// refreshes. A declined confirmation is a no-op.
func (c *Client) Delete(ctx context.Context, item Item) error {
	if !c.confirm(item) {
		return nil
	}

	if err := c.beginMutation(); err != nil {
		return err
	}
	defer c.endMutation()

	if _, err := c.do(ctx, http.MethodDelete, "/api/items/"+item.ID, nil); err != nil {
		c.log.Warn().Err(err).Str("id", item.ID).Msg("delete failed")
		c.setError("Failed to delete item.")
		return err
	}

	c.setSuccess("Item deleted successfully!")
	return c.Refresh(ctx)
}

// SetFormFields replaces the form draft (typed input from the view layer).
func (c *Client) SetFormFields(form FormFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
}

// Items returns a copy of the last-fetched collection.
func (c *Client) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// FormFields returns the current form draft.
func (c *Client) FormFields() FormFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// EditingID returns the id of the item being edited, or "" in create mode.
func (c *Client) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// ErrorMessage returns the transient error message, if any.
func (c *Client) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorMessage
}

// SuccessMessage returns the transient success message, if any.
func (c *Client) SuccessMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successMessage
}

// beginMutation admits at most one in-flight mutation, so two submissions can
// never race on the same edit target.
func (c *Client) beginMutation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mutating {
		return ErrMutationInFlight
	}
	c.mutating = true
	return nil
}

func (c *Client) endMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutating = false
}

// setError publishes a transient error message that auto-clears after the
// message TTL unless replaced first.
func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.errorMessage = msg
	c.errGen++
	gen := c.errGen
	c.mu.Unlock()

	time.AfterFunc(c.messageTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.errGen == gen {
			c.errorMessage = ""
		}
	})
}

func (c *Client) setSuccess(msg string) {
	c.mu.Lock()
	c.successMessage = msg
	c.okGen++
	gen := c.okGen
	c.mu.Unlock()

	time.AfterFunc(c.messageTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.okGen == gen {
			c.successMessage = ""
		}
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &env, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &env, nil
}
