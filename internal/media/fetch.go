package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxAssetBytes bounds how much of a voice note or sketch is downloaded.
const maxAssetBytes = 20 << 20

func fetchBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status code: %d", url, res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxAssetBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAssetBytes {
		return nil, errors.New("asset exceeds download limit")
	}
	return data, nil
}
