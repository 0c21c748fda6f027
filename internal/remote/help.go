package remote

import (
	"context"
	"net/http"
	"net/url"
)

// SaveHelpContent flushes one help-center panel's content as its own save
// call during publish.
func (c *Client) SaveHelpContent(ctx context.Context, panelID, content string) error {
	body := struct {
		Content string `json:"content"`
	}{Content: content}
	return c.do(ctx, http.MethodPut, helpPath+"/"+url.PathEscape(panelID), body, nil)
}
