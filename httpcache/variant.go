package httpcache

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/klauspost/compress/zstd"
)

// Variant is one candidate encoding of a repodata resource, tried in order
// until one is found (§4.2 "Content negotiation").
type Variant struct {
	// Suffix is appended to the base URL, e.g. ".zst" or ".bz2". The empty
	// suffix means the base URL itself (uncompressed repodata.json).
	Suffix string
	Decode func(io.Reader) (io.Reader, error)
}

// DefaultVariants is the negotiation order solvent uses for repodata.json:
// zstd first (smallest, fastest to decode), then bzip2, then the
// uncompressed fallback every conda channel is guaranteed to serve.
var DefaultVariants = []Variant{
	{Suffix: ".zst", Decode: decodeZstd},
	{Suffix: ".bz2", Decode: decodeBzip2},
	{Suffix: "", Decode: func(r io.Reader) (io.Reader, error) { return r, nil }},
}

func decodeZstd(r io.Reader) (io.Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("httpcache: open zstd reader: %w", err)
	}
	return dec.IOReadCloser(), nil
}

func decodeBzip2(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r), nil
}

// FetchVariant tries each of variants in order against baseURL+suffix,
// skipping a variant whose URL is negatively cached (or freshly 404s) and
// returning the first decoded body that succeeds. The availability of each
// variant is itself cached by Get's NotFound handling, so repeated calls
// against an unavailable variant do not re-issue a network request until
// that entry's freshness window expires.
func (c *Cache) FetchVariant(ctx context.Context, baseURL string, variants []Variant, newRequest func(url string) (*http.Request, error)) (body []byte, chosen Variant, err error) {
	var errs []error
	for _, v := range variants {
		url := baseURL + v.Suffix
		req, err := newRequest(url)
		if err != nil {
			return nil, Variant{}, fmt.Errorf("httpcache: build request for %s: %w", url, err)
		}
		req = req.WithContext(ctx)

		raw, err := c.Get(req)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decoded, err := v.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, Variant{}, fmt.Errorf("httpcache: decode %s: %w", url, err)
		}
		body, err = io.ReadAll(decoded)
		if err != nil {
			return nil, Variant{}, fmt.Errorf("httpcache: read decoded body of %s: %w", url, err)
		}
		return body, v, nil
	}
	if len(errs) > 0 {
		return nil, Variant{}, errors.Join(append([]error{fmt.Errorf("httpcache: no variant of %s available", baseURL)}, errs...)...)
	}
	return nil, Variant{}, fmt.Errorf("%w: no variant of %s available", ErrNotFound, baseURL)
}
