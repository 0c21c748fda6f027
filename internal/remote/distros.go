package remote

import (
	"context"
	"net/http"

	"github.com/soneri/appcanvas/internal/distro"
	"github.com/soneri/appcanvas/model"
)

// ListDistros retrieves the available distribution descriptors and injects
// the synthetic main variant as the first entry; the server never returns
// the default variant itself.
func (c *Client) ListDistros(ctx context.Context) ([]model.DistroDescriptor, error) {
	var descriptors []model.DistroDescriptor
	if err := c.do(ctx, http.MethodGet, distrosPath, nil, &descriptors); err != nil {
		return nil, err
	}
	return distro.WithMain(descriptors), nil
}
