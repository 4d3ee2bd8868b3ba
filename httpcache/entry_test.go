package httpcache

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	header := EntryHeader{
		Policy: CachePolicy{
			URL:          "https://example.test/repodata.json",
			ETag:         `"abc123"`,
			CacheControl: "max-age=300",
			FetchedAt:    time.Unix(1700000000, 0).UTC(),
		},
	}
	body := []byte(`{"packages":{}}`)

	var buf bytes.Buffer
	if err := encode(&buf, header, body); err != nil {
		t.Fatalf("encode: %v", err)
	}

	gotHeader, gotBody, err := decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(header, gotHeader); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(body, gotBody) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, _, err := decode([]byte("not a cache entry at all"))
	if err == nil {
		t.Fatal("expected an error for corrupt magic")
	}
}

func TestKeyForURLIsStableAndDistinct(t *testing.T) {
	a := KeyForURL("https://repo.example/linux-64/repodata.json")
	b := KeyForURL("https://repo.example/linux-64/repodata.json")
	c := KeyForURL("https://repo.example/osx-64/repodata.json")

	if a != b {
		t.Error("KeyForURL is not stable for the same URL")
	}
	if a == c {
		t.Error("KeyForURL collided for distinct URLs")
	}
}
