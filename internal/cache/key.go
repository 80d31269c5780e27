package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"imagelite/internal/geometry"
	"imagelite/internal/imagetypes"
)

// Key is the relative location of an artifact under the cache root.
type Key struct {
	Shards   []string
	Filename string
}

// DeriveKey computes the artifact key for a resolved transform of the source
// at srcPath. srcPath should be absolute and canonical; two spellings of the
// same file produce different keys.
func DeriveKey(srcPath string, geo geometry.Geometry, req geometry.Request, format imagetypes.Format) Key {
	req = req.Normalized()
	srcHash := sha1Hex(srcPath)

	return Key{
		Shards: []string{
			strconv.Itoa(geo.DstWidth),
			strconv.Itoa(geo.DstHeight),
			strconv.Itoa(int(srcHash[0])),
			strconv.Itoa(int(srcHash[1])),
			fmt.Sprintf("q%d-r%d-s%d-c%d", req.Quality, req.Rotation, req.Sharpen, boolDigit(req.Constrain)),
		},
		Filename: sha1Hex(StrategyIdentity(req, geo)) + "_" + srcHash + "." + format.Extension(),
	}
}

// StrategyIdentity names the strategy for hashing into the filename. A
// letterbox whose canvas differs from its content, or whose background is
// not opaque black, carries the canvas size and background so that
// differently padded outputs never share a file.
func StrategyIdentity(req geometry.Request, geo geometry.Geometry) string {
	id := string(req.Strategy)
	if id == "" {
		id = string(geometry.StrategyStandard)
	}
	if req.Strategy != geometry.StrategyLetterbox {
		return id
	}

	bg := geometry.NewBackground(req.Background.Color, req.Background.Alpha)
	if geo.CanvasWidth == geo.DstWidth && geo.CanvasHeight == geo.DstHeight && bg.IsDefault() {
		return id
	}
	return fmt.Sprintf("%s:%dx%d:%s:%d", id, geo.CanvasWidth, geo.CanvasHeight, bg.Color, bg.Alpha)
}

// Dir returns the shard directories joined with the OS separator.
func (k Key) Dir() string {
	return filepath.Join(k.Shards...)
}

// Path returns the key joined with the OS separator.
func (k Key) Path() string {
	return filepath.Join(k.Dir(), k.Filename)
}

// URIPath returns the key joined with forward slashes.
func (k Key) URIPath() string {
	return path.Join(append(append([]string{}, k.Shards...), k.Filename)...)
}

// IsZero reports whether k was never derived.
func (k Key) IsZero() bool {
	return k.Filename == ""
}

func (k Key) String() string {
	return k.URIPath()
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}
