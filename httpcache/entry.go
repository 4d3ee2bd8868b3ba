package httpcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// magic identifies the on-disk cache entry format (§6): "SHARD-CACHE-V1"
// for every variant this cache writes, regardless of whether the cached
// resource is a shard, a full repodata.json, or an arbitrary HTTP
// response — the framing is identical, only the policy's URL differs.
const magic = "SHARD-CACHE-V1"

// EntryHeader is the MessagePack-encoded block following the length
// prefix: the cache policy plus a "not found" sentinel for negatively
// cached 404s (content negotiation availability, §4.2).
type EntryHeader struct {
	Policy   CachePolicy `msgpack:"policy"`
	NotFound bool        `msgpack:"not_found"`
}

// ErrCorrupt is returned by decode when the magic number does not match;
// callers should delete the offending file and retry once, per §7's cache
// error policy.
var ErrCorrupt = fmt.Errorf("httpcache: corrupt cache entry (bad magic number)")

// encode writes one cache entry: magic, u32 LE header length, MessagePack
// header, raw body.
func encode(w io.Writer, header EntryHeader, body []byte) error {
	encoded, err := msgpack.Marshal(header)
	if err != nil {
		return fmt.Errorf("httpcache: marshal header: %w", err)
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return fmt.Errorf("httpcache: write magic: %w", err)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("httpcache: write header length: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("httpcache: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("httpcache: write body: %w", err)
	}
	return nil
}

// decode reads one cache entry from data, returning its header and body.
func decode(data []byte) (EntryHeader, []byte, error) {
	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return EntryHeader{}, nil, ErrCorrupt
	}
	rest := data[len(magic):]
	headerLen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < headerLen {
		return EntryHeader{}, nil, ErrCorrupt
	}
	var header EntryHeader
	if err := msgpack.Unmarshal(rest[:headerLen], &header); err != nil {
		return EntryHeader{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	body := rest[headerLen:]
	return header, body, nil
}

// KeyForURL returns the cache file's base name for a URL without any
// extension: the hex SHA-256 of the URL string.
func KeyForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
