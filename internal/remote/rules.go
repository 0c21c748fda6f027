package remote

import (
	"context"
	"net/http"

	"github.com/soneri/appcanvas/model"
)

// rulesResponse is the read envelope of the flat rules store.
type rulesResponse struct {
	Success bool              `json:"success"`
	Rules   map[string]string `json:"rules"`
}

// FetchRules retrieves the full flat rules map.
func (c *Client) FetchRules(ctx context.Context) (map[string]string, error) {
	var resp rulesResponse
	if err := c.do(ctx, http.MethodGet, rulesPath, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		// An unsuccessful read means the session credential was rejected.
		c.sessionRejected()
		return nil, model.NewSessionInvalidError()
	}
	if resp.Rules == nil {
		resp.Rules = make(map[string]string)
	}
	return resp.Rules, nil
}

// ReplaceRules writes the fully merged rules map back as a replacement. The
// merge happens client-side before the write; the transport never patches.
func (c *Client) ReplaceRules(ctx context.Context, rules map[string]string) error {
	body := struct {
		Rules map[string]string `json:"rules"`
	}{Rules: rules}
	return c.do(ctx, http.MethodPut, rulesPath, body, nil)
}
