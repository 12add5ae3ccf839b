package archive

import "fmt"

// Compression identifies the outer compression codec wrapping a NAR
// archive, as named in a narinfo document's Compression field.
type Compression int

const (
	None Compression = iota
	Brotli
	Bzip2
	Gzip
	Lz4
	Lzma
	Xz
	Zstd
)

// ParseCompression maps a narinfo Compression token to a Compression
// value. Matches the original implementation's token set exactly.
func ParseCompression(token string) (Compression, error) {
	switch token {
	case "none":
		return None, nil
	case "br":
		return Brotli, nil
	case "bzip2":
		return Bzip2, nil
	case "gzip":
		return Gzip, nil
	case "lz4":
		return Lz4, nil
	case "lzma":
		return Lzma, nil
	case "xz":
		return Xz, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("archive: unknown compression %q", token)
	}
}

// String renders the narinfo token for c, the inverse of ParseCompression.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Brotli:
		return "br"
	case Bzip2:
		return "bzip2"
	case Gzip:
		return "gzip"
	case Lz4:
		return "lz4"
	case Lzma:
		return "lzma"
	case Xz:
		return "xz"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}
