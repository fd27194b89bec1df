package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/detachr/pkg/document"
)

// FontPattern matches font files below a font directory.
const FontPattern = "**/*.{ttf,otf,ttc,TTF,OTF,TTC}"

// Face is a font face backed by a file.
type Face struct {
	Name document.FontName
	Path string
}

// Discover lists font files under dirs. Faces are named after the file:
// "Inter-SemiBold.ttf" is family "Inter", style "SemiBold"; a name without
// a dash is the family's "Regular" style. Missing directories are skipped.
func Discover(dirs []string) ([]Face, error) {
	var faces []Face
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("font dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("font dir %s: not a directory", dir)
		}

		matches, err := doublestar.Glob(os.DirFS(dir), FontPattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("scan font dir %s: %w", dir, err)
		}
		for _, rel := range matches {
			faces = append(faces, Face{
				Name: faceName(rel),
				Path: filepath.Join(dir, filepath.FromSlash(rel)),
			})
		}
	}
	return faces, nil
}

func faceName(rel string) document.FontName {
	base := strings.TrimSuffix(pathBase(rel), filepath.Ext(rel))
	family, style, ok := strings.Cut(base, "-")
	if !ok || style == "" {
		return document.FontName{Family: base, Style: "Regular"}
	}
	return document.FontName{Family: family, Style: style}
}

func pathBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
