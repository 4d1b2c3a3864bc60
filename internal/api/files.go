package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/onemorerev/client/pkg/core"
)

// FetchFile downloads a stored file by its server-side filename.
func (c *Client) FetchFile(ctx context.Context, filename string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, http.MethodGet, "/file/"+url.PathEscape(filename), nil, nil, &data)
	return data, err
}

// EncodeFile reads path and prepares it for a JSON upload to trackID.
func EncodeFile(trackID, path string) (core.FileUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.FileUpload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return EncodeBytes(trackID, filepath.Base(path), data), nil
}

// EncodeBytes base64-encodes data and detects its content type.
func EncodeBytes(trackID, filename string, data []byte) core.FileUpload {
	return core.FileUpload{
		TrackID:     trackID,
		Filename:    filename,
		ContentType: mimetype.Detect(data).String(),
		Content:     base64.StdEncoding.EncodeToString(data),
	}
}
