// Package fonts resolves the typeface used for diagram text.
//
// Resolution falls through a candidate list: explicit file paths first, then
// system fonts located via go-findfont, and finally the Go fonts embedded in
// the binary, so rendering works on machines with no fonts installed at all.
package fonts

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultCandidates are the typefaces tried in order before the embedded
// fallback.
var DefaultCandidates = []string{
	"Verdana", "DejaVu Sans", "Arial", "Liberation Sans", "Helvetica",
}

// Catalog holds the resolved regular and bold typefaces.
type Catalog struct {
	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// Resolve builds a catalog from the candidate list. A candidate containing a
// path separator or a .ttf/.otf suffix is read as a file, anything else is
// looked up among the installed system fonts. Candidates that cannot be read
// or parsed are logged and skipped; the embedded Go fonts guarantee the
// catalog is never empty, so Resolve cannot fail.
func Resolve(candidates []string, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}

	c := &Catalog{faces: make(map[faceKey]font.Face)}
	for _, name := range candidates {
		f, err := load(name)
		if err != nil {
			logger.Debug("font candidate unavailable", "font", name, "error", err)
			continue
		}
		c.regular = f
		logger.Debug("resolved diagram font", "font", name)

		// Best effort: a matching bold cut next to the regular one.
		if b, err := load(name + " Bold"); err == nil {
			c.bold = b
		}
		break
	}

	if c.regular == nil {
		c.regular = mustParse(goregular.TTF)
		logger.Debug("using embedded fallback font")
	}
	if c.bold == nil {
		c.bold = mustParse(gobold.TTF)
	}
	return c
}

// Regular returns a cached face for body text at the given point size.
func (c *Catalog) Regular(size float64) font.Face {
	return c.face(c.regular, size, false)
}

// Bold returns a cached face for header text at the given point size.
func (c *Catalog) Bold(size float64) font.Face {
	return c.face(c.bold, size, true)
}

func (c *Catalog) face(f *truetype.Font, size float64, bold bool) font.Face {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := faceKey{size: size, bold: bold}
	if face, ok := c.faces[key]; ok {
		return face
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	c.faces[key] = face
	return face
}

func load(name string) (*truetype.Font, error) {
	path := name
	if !isPath(name) {
		found, err := findfont.Find(name)
		if err != nil {
			return nil, err
		}
		path = found
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return truetype.Parse(data)
}

func isPath(name string) bool {
	if strings.ContainsAny(name, "/\\") {
		return true
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".ttf") || strings.HasSuffix(lower, ".otf")
}

func mustParse(data []byte) *truetype.Font {
	f, err := truetype.Parse(data)
	if err != nil {
		// The embedded Go fonts always parse.
		panic(err)
	}
	return f
}
