// Package board creates Trello boards and cards for a generated plan.
package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"planbuilder/pkg/logx"
)

// Defaults for the hosted Trello API.
const (
	DefaultBaseURL  = "https://api.trello.com/1"
	DefaultWebURL   = "https://trello.com/b/"
	DefaultListName = "To Do"
)

// ErrAPI wraps every non-success response from the board service.
var ErrAPI = errors.New("board API error")

// Ref identifies a created board and the list new cards go to.
type Ref struct {
	BoardID string `json:"board_id"`
	ListID  string `json:"list_id"`
	webURL  string
}

// URL returns the browser address of the board.
func (r Ref) URL() string {
	base := r.webURL
	if base == "" {
		base = DefaultWebURL
	}
	return base + r.BoardID
}

// IsZero reports whether no board has been created.
func (r Ref) IsZero() bool { return r.BoardID == "" && r.ListID == "" }

// Card is one card to create.
type Card struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
	ListID      string `json:"idList"`
	Start       string `json:"start,omitempty"`
	Due         string `json:"due,omitempty"`
}

// Config configures the client.
type Config struct {
	BaseURL  string
	WebURL   string
	ListName string
	Key      string
	Token    string
	Timeout  time.Duration
}

// Client talks to the Trello REST API.
type Client struct {
	http     *resty.Client
	webURL   string
	listName string
	logger   *logx.Logger
}

// NewClient creates a client. Empty config values fall back to the hosted defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.WebURL == "" {
		cfg.WebURL = DefaultWebURL
	}
	if cfg.ListName == "" {
		cfg.ListName = DefaultListName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetQueryParams(map[string]string{"key": cfg.Key, "token": cfg.Token}),
		webURL:   cfg.WebURL,
		listName: cfg.ListName,
		logger:   logx.NewLogger("board"),
	}
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *Client) post(ctx context.Context, path string, body any) (string, error) {
	var out idResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err != nil {
		// The request URL carries key and token as query parameters.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: POST %s: %d %s", ErrAPI, path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: POST %s: response has no id", ErrAPI, path)
	}
	return out.ID, nil
}

// CreateBoard creates a board and its initial list.
func (c *Client) CreateBoard(ctx context.Context, name string) (Ref, error) {
	boardID, err := c.post(ctx, "/boards/", map[string]string{"name": name})
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create board %q: %w", name, err)
	}
	c.logger.Info("Created board %s (%s)", name, boardID)

	listID, err := c.post(ctx, "/boards/"+boardID+"/lists", map[string]string{"name": c.listName})
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create list on board %s: %w", boardID, err)
	}
	c.logger.Info("Created list %q (%s)", c.listName, listID)

	return Ref{BoardID: boardID, ListID: listID, webURL: c.webURL}, nil
}

// CreateCard creates a card and returns its ID.
func (c *Client) CreateCard(ctx context.Context, card Card) (string, error) {
	id, err := c.post(ctx, "/cards", card)
	if err != nil {
		return "", fmt.Errorf("failed to create card %q: %w", card.Name, err)
	}
	c.logger.Debug("Created card %s (%s)", card.Name, id)
	return id, nil
}
