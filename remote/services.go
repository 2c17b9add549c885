package remote

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-wizard"
)

// CreateContainer asks the server for a new empty container.
// POST {base}/containers
func (c *Client) CreateContainer(ctx context.Context) (wizard.Container, error) {
	return command[wizard.Container](ctx, c, "create container", "containers", struct{}{})
}

type closeResponse struct {
	Closed bool `json:"closed"`
}

// CloseContainer closes the container with code.
// POST {base}/containers/{code}/close
func (c *Client) CloseContainer(ctx context.Context, code string) (bool, error) {
	resp, err := command[closeResponse](ctx, c, "close container",
		"containers/"+url.PathEscape(strings.TrimSpace(code))+"/close", struct{}{})
	return resp.Closed, err
}

type labelRequest struct {
	Code string `json:"code"`
}

type labelResponse struct {
	Printed bool `json:"printed"`
}

// PrintLabel prints a label for code.
// POST {base}/labels
func (c *Client) PrintLabel(ctx context.Context, code string) (bool, error) {
	resp, err := command[labelResponse](ctx, c, "print label", "labels", labelRequest{Code: strings.TrimSpace(code)})
	return resp.Printed, err
}
