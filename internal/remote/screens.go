package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/soneri/appcanvas/model"
)

// Upstream endpoint paths.
const (
	screensPath = "/api/config"
	rulesPath   = "/api/rules"
	distrosPath = "/api/distros"
	helpPath    = "/api/help"
)

// distroScreensPath returns the distro-scoped document path.
func distroScreensPath(distroName string) string {
	return screensPath + "/distro/" + url.PathEscape(distroName)
}

// FetchDocument retrieves the full configuration document for a variant.
// The empty name (or "main") addresses the default variant.
func (c *Client) FetchDocument(ctx context.Context, distroName string) (model.ConfigurationDocument, error) {
	path := screensPath
	if !isMainVariant(distroName) {
		path = distroScreensPath(distroName)
	}

	var doc model.ConfigurationDocument
	if err := c.do(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return model.ConfigurationDocument{}, err
	}
	if doc.Screens == nil {
		doc.Screens = make(map[string]model.ScreenConfig)
	}
	if doc.GlobalTheming == nil {
		doc.GlobalTheming = make(map[string]string)
	}
	return doc, nil
}

// PublishDocument writes the screens/navigation document. The default
// variant is POSTed wrapped in a config envelope; a named distro is PUT as
// the raw document to its distro-scoped path.
func (c *Client) PublishDocument(ctx context.Context, distroName string, doc model.ConfigurationDocument) error {
	if isMainVariant(distroName) {
		envelope := struct {
			Config model.ConfigurationDocument `json:"config"`
		}{Config: doc}
		return c.do(ctx, http.MethodPost, screensPath, envelope, nil)
	}
	return c.do(ctx, http.MethodPut, distroScreensPath(distroName), doc, nil)
}

func isMainVariant(name string) bool {
	return name == "" || name == "main"
}
