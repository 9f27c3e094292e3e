package inventory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
)

// Quantity operations accepted by the cable quantity form.
const (
	QuantityAdd      = "add"
	QuantitySubtract = "subtract"
	QuantitySet      = "set"
)

// Client calls the backend's item endpoints.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps an API transport.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// itemPayload is the create/update body. Optional text fields are sent as
// null when blank.
type itemPayload struct {
	Category   string  `json:"category"`
	Make       string  `json:"make"`
	Model      string  `json:"model"`
	ServiceTag *string `json:"service_tag"`
	Row        *string `json:"row"`
	Note       *string `json:"note"`
}

type notePayload struct {
	Note *string `json:"note"`
}

type deployPayload struct {
	AssignedUser string  `json:"assigned_user"`
	Note         *string `json:"note"`
}

type retirePayload struct {
	Note      *string `json:"note"`
	ZeroStock bool    `json:"zero_stock"`
}

type quantityPayload struct {
	Delta int     `json:"delta"`
	Note  *string `json:"note"`
}

type itemEnvelope struct {
	Item Item `json:"item"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List returns items matching the free-text query (all items when blank).
func (c *Client) List(ctx context.Context, token, query string) ([]Item, error) {
	path := "/items"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out struct {
		Items []Item `json:"items"`
	}
	if err := c.api.Do(ctx, apiclient.Request{Path: path, Token: token, Fallback: "Failed to load inventory"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListAll returns every item, used for totals and facets.
func (c *Client) ListAll(ctx context.Context, token string) ([]Item, error) {
	var out struct {
		Items []Item `json:"items"`
	}
	if err := c.api.Do(ctx, apiclient.Request{Path: "/items", Token: token, Fallback: "Failed to load inventory totals"}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Get returns one item with its history.
func (c *Client) Get(ctx context.Context, token string, id int64) (*Detail, error) {
	var out Detail
	err := c.api.Do(ctx, apiclient.Request{
		Path:     fmt.Sprintf("/items/%d", id),
		Token:    token,
		Fallback: "Failed to load item",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds an item built from form. The form must already be normalized.
func (c *Client) Create(ctx context.Context, token string, form ItemForm) (*Item, error) {
	return c.writeItem(ctx, token, http.MethodPost, "/items", form, "Failed to add item")
}

// Update replaces the editable fields of item id.
func (c *Client) Update(ctx context.Context, token string, id int64, form ItemForm) (*Item, error) {
	return c.writeItem(ctx, token, http.MethodPut, fmt.Sprintf("/items/%d", id), form, "Failed to update item")
}

func (c *Client) writeItem(ctx context.Context, token, method, path string, form ItemForm, fallback string) (*Item, error) {
	var out itemEnvelope
	err := c.api.Do(ctx, apiclient.Request{
		Method: method,
		Path:   path,
		Token:  token,
		JSON: itemPayload{
			Category:   form.Category,
			Make:       form.Make,
			Model:      form.Model,
			ServiceTag: optional(form.ServiceTag),
			Row:        optional(form.Row),
			Note:       optional(form.Note),
		},
		Fallback: fallback,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Deploy assigns item id to a user.
func (c *Client) Deploy(ctx context.Context, token string, id int64, assignedUser, note string) error {
	return c.action(ctx, token, id, "deploy", deployPayload{AssignedUser: assignedUser, Note: optional(note)}, "Failed to deploy item", nil)
}

// Return puts item id back in stock.
func (c *Client) Return(ctx context.Context, token string, id int64, note string) error {
	return c.action(ctx, token, id, "return", notePayload{Note: optional(note)}, "Failed to return item", nil)
}

// Retire retires item id, optionally zeroing cable stock.
func (c *Client) Retire(ctx context.Context, token string, id int64, note string, zeroStock bool) error {
	return c.action(ctx, token, id, "retire", retirePayload{Note: optional(note), ZeroStock: zeroStock}, "Failed to update status", nil)
}

// Restore brings a retired item back and returns it.
func (c *Client) Restore(ctx context.Context, token string, id int64, note, fallback string) (*Item, error) {
	if fallback == "" {
		fallback = "Failed to update status"
	}
	var out itemEnvelope
	if err := c.action(ctx, token, id, "restore", retirePayload{Note: optional(note)}, fallback, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// AdjustQuantity changes a cable's stock by delta.
func (c *Client) AdjustQuantity(ctx context.Context, token string, id int64, delta int, note string) error {
	return c.action(ctx, token, id, "quantity", quantityPayload{Delta: delta, Note: optional(note)}, "Failed to adjust cable quantity", nil)
}

func (c *Client) action(ctx context.Context, token string, id int64, action string, body any, fallback string, out any) error {
	if id <= 0 {
		return &apiclient.Error{Message: "Invalid item id"}
	}
	return c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     fmt.Sprintf("/items/%d/%s", id, action),
		Token:    token,
		JSON:     body,
		Fallback: fallback,
	}, out)
}

// Summary returns the stock and history of a quantity-tracked category.
// The category is capitalized the way the backend stores it.
func (c *Client) Summary(ctx context.Context, token, category string) (*CableSummary, error) {
	normalized := CapitalizeFirst(trimOr(category, CableCategory))
	var out CableSummary
	err := c.api.Do(ctx, apiclient.Request{
		Path:     "/items/category/" + url.PathEscape(normalized) + "/summary",
		Token:    token,
		Fallback: "Failed to load cable summary",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Category == "" {
		out.Category = normalized
	}
	return &out, nil
}
