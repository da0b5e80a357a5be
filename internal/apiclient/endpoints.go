package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/phillip-england/branchdesk/internal/datatable"
	"github.com/phillip-england/branchdesk/internal/session"
)

type loginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    session.User `json:"user"`
	Message string       `json:"message"`
}

// Login satisfies session.Authenticator.
func (c *Client) Login(ctx context.Context, username, password string) (string, session.User, error) {
	var out loginResponse
	in := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, in, &out); err != nil {
		return "", session.User{}, err
	}
	if out.Token == "" {
		return "", session.User{}, &APIError{Status: http.StatusBadGateway, Message: "login response carried no token"}
	}
	return out.Token, out.User, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.WithToken(token).doJSON(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (session.User, error) {
	var out struct {
		User session.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, nil, &out); err != nil {
		return session.User{}, err
	}
	return out.User, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// List fetches one page of an entity with the given query parameters.
func (c *Client) List(ctx context.Context, entity Entity, params url.Values) (Page, error) {
	var payload map[string]json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, entity.ListPath(), params, nil, &payload); err != nil {
		return Page{}, err
	}
	var page Page
	if raw, ok := payload[entity.ListKey()]; ok {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return Page{}, fmt.Errorf("decode %s: %w", entity.ListKey(), err)
		}
		page.Rows = make([]datatable.Row, len(rows))
		for i, row := range rows {
			page.Rows[i] = datatable.Row(row)
		}
	}
	if raw, ok := payload["pagination"]; ok {
		if err := json.Unmarshal(raw, &page.Pagination); err != nil {
			return Page{}, fmt.Errorf("decode pagination: %w", err)
		}
	}
	return page, nil
}

// Get fetches one record into out.
func (c *Client) Get(ctx context.Context, entity Entity, id int64, out any) error {
	var payload map[string]json.RawMessage
	path := "/" + string(entity) + "/show/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &payload); err != nil {
		return err
	}
	raw, ok := payload[string(entity)]
	if !ok {
		return &APIError{Status: http.StatusNotFound, Message: entity.Title() + " not found"}
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) Create(ctx context.Context, entity Entity, fields map[string]any) (string, error) {
	var out Message
	if err := c.doJSON(ctx, http.MethodPost, "/create/"+string(entity), nil, fields, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Update sends only the changed fields.
func (c *Client) Update(ctx context.Context, entity Entity, id int64, changes map[string]any) (string, error) {
	var out Message
	path := "/" + string(entity) + "/update/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, changes, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) SetStatus(ctx context.Context, entity Entity, id int64, status int) (string, error) {
	var out Message
	in := map[string]any{"id": id, "status": status}
	if err := c.doJSON(ctx, http.MethodPost, "/"+string(entity)+"/update-status", nil, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) BranchesMinimal(ctx context.Context) ([]BranchOption, error) {
	var out struct {
		Branches []BranchOption `json:"branches"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/admin/branches/minimal", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Branches, nil
}

func (c *Client) ActiveDesignations(ctx context.Context) ([]DesignationOption, error) {
	var out struct {
		Designations []DesignationOption `json:"designations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/designations/active", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Designations, nil
}

func (c *Client) AdminStats(ctx context.Context) (Stats, error) {
	var out struct {
		Stats Stats `json:"stats"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/admin/dashboard/stats", nil, nil, &out)
	return out.Stats, err
}

func (c *Client) BranchStats(ctx context.Context) (BranchStats, error) {
	var out struct {
		Stats BranchStats `json:"stats"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/branch/dashboard/stats", nil, nil, &out)
	return out.Stats, err
}

func (c *Client) Profile(ctx context.Context) (session.User, error) {
	var out struct {
		UserDetails session.User `json:"user_details"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/profile", nil, nil, &out)
	return out.UserDetails, err
}

func (c *Client) UpdateProfile(ctx context.Context, changes map[string]any) (session.User, error) {
	var out struct {
		Message     string       `json:"message"`
		UserDetails session.User `json:"user_details"`
	}
	err := c.doJSON(ctx, http.MethodPut, "/profile", nil, changes, &out)
	return out.UserDetails, err
}

func (c *Client) ChangePassword(ctx context.Context, current, next, confirmation string) (string, error) {
	var out Message
	in := map[string]string{
		"current_password":          current,
		"new_password":              next,
		"new_password_confirmation": confirmation,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/profile/password", nil, in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ImportItems uploads a spreadsheet. Row errors come back in the result, not
// as an error.
func (c *Client) ImportItems(ctx context.Context, filename string, r io.Reader) (ImportResult, error) {
	var out ImportResult
	err := c.upload(ctx, "/import/items", "file", filename, r, &out)
	return out, err
}

func (c *Client) UploadItemImage(ctx context.Context, id int64, filename string, r io.Reader) (string, error) {
	var out struct {
		ImageURL string `json:"image_url"`
	}
	err := c.upload(ctx, "/item/"+strconv.FormatInt(id, 10)+"/image", "image", filename, r, &out)
	return out.ImageURL, err
}

// ExportItems returns the xlsx body and its Content-Disposition header.
func (c *Client) ExportItems(ctx context.Context, params url.Values) ([]byte, string, error) {
	return c.download(ctx, "/export/items", params)
}

func (c *Client) ImportTemplate(ctx context.Context) ([]byte, string, error) {
	return c.download(ctx, "/import/items/template", nil)
}

// ItemImage fetches a stored item image by its image_url path.
func (c *Client) ItemImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeError(resp.StatusCode, raw)
	}
	return raw, resp.Header.Get("Content-Type"), nil
}
