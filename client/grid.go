package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/miosa/aac-board/grid"
)

var _ grid.API = (*Client)(nil)

// GetGrid fetches the whole category map.
func (c *Client) GetGrid(ctx context.Context) (grid.Categories, error) {
	var cats grid.Categories
	if err := c.do(ctx, http.MethodGet, "/api/grid", nil, &cats); err != nil {
		return nil, fmt.Errorf("get grid: %w", err)
	}
	return cats, nil
}

// SaveGrid replaces the server's category map.
func (c *Client) SaveGrid(ctx context.Context, cats grid.Categories) error {
	if err := c.do(ctx, http.MethodPost, "/api/grid", cats, nil); err != nil {
		return fmt.Errorf("save grid: %w", err)
	}
	return nil
}

// AddItem creates item under parent.
func (c *Client) AddItem(ctx context.Context, item grid.Item, parent string) error {
	if err := c.do(ctx, http.MethodPost, "/api/grid/item", addItemRequest{Item: item, ParentCategory: parent}, nil); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

// UpdateItem applies patch to the item with id.
func (c *Client) UpdateItem(ctx context.Context, id string, patch grid.Patch) error {
	if err := c.do(ctx, http.MethodPut, "/api/grid/item/"+url.PathEscape(id), patch, nil); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// DeleteItem removes the item with id. A non-empty categoryTarget asks the
// server to drop that category's pages too.
func (c *Client) DeleteItem(ctx context.Context, id, categoryTarget string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/grid/item/"+url.PathEscape(id), deleteItemRequest{CategoryTarget: categoryTarget}, nil); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Correct returns the grammatically corrected sentence.
func (c *Client) Correct(ctx context.Context, sentence string) (string, error) {
	var result CorrectResponse
	if err := c.do(ctx, http.MethodPost, "/api/correct", correctRequest{Sentence: sentence}, &result); err != nil {
		return "", fmt.Errorf("correct: %w", err)
	}
	return result.Corrected, nil
}

// Conjugate maps each base form to its form in tense.
func (c *Client) Conjugate(ctx context.Context, sentence string, baseForms []string, tense grid.Tense) (map[string]string, error) {
	forms := map[string]string{}
	req := conjugateRequest{Sentence: sentence, BaseForms: baseForms, Tense: string(tense)}
	if err := c.do(ctx, http.MethodPost, "/api/conjugate", req, &forms); err != nil {
		return nil, fmt.Errorf("conjugate: %w", err)
	}
	return forms, nil
}

// SearchPictograms queries ARASAAC through the backend proxy. A blank query
// returns nothing without a request.
func (c *Client) SearchPictograms(ctx context.Context, query string, limit int) ([]Pictogram, error) {
	if query == "" {
		return nil, nil
	}
	v := url.Values{"query": {query}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var result searchResponse
	if err := c.do(ctx, http.MethodGet, "/api/ai/search-arasaac?"+v.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("search pictograms: %w", err)
	}
	return result.Icons, nil
}
