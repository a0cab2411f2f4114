// Package emitter writes synthesized recipe documents to disk.
package emitter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
	"gopkg.in/yaml.v2"
	"howett.net/plist"
)

// Format is the on-disk recipe encoding.
type Format string

const (
	FormatPlist Format = "plist"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts "plist", "yaml" or "" (plist).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plist", "xml":
		return FormatPlist, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown recipe format %q (want plist or yaml)", name)
}

// FileName returns "<subject>.<kind>.recipe", with ".yaml" appended for YAML.
func FileName(subject, kind string, format Format) string {
	name := subject + "." + kind + ".recipe"
	if format == FormatYAML {
		name += ".yaml"
	}
	return name
}

// Encode serializes doc in the given format.
func Encode(doc *recipe.Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatPlist, "":
		return plist.MarshalIndent(doc, plist.XMLFormat, "  ")
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// kinds whose recipes reference %NAME%.png.
var iconKinds = []string{recipe.KindMunki, recipe.KindJSS}

// Writer writes selected documents under Dir/<subject>/.
type Writer struct {
	Dir    string
	Format Format
	// Icons converts the app icon to PNG. Nil skips icon extraction.
	Icons IconExtractor
}

// Written is one file the Writer created.
type Written struct {
	Kind string
	Path string
}

// Write encodes every selected state's document. An existing file is
// overwritten with a warning. Icon failures are warnings; encode and write
// failures are WRITE_FAILED errors.
func (w *Writer) Write(ctx context.Context, f *facts.Facts, states recipe.States, rep *report.Report) ([]Written, error) {
	if w.Dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "output directory must not be empty")
	}
	dir := filepath.Join(w.Dir, f.SubjectName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailed, err, "cannot create %s", dir)
	}

	var out []Written
	for _, st := range states {
		if !st.Selected || st.Document == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		data, err := Encode(st.Document, w.Format)
		if err != nil {
			return out, errors.Wrap(errors.ErrCodeWriteFailed, err, "cannot encode %s recipe", st.Kind.Name)
		}
		path := filepath.Join(dir, FileName(f.SubjectName, st.Kind.Name, w.Format))
		if existing, err := os.ReadFile(path); err == nil {
			if bytes.Equal(existing, data) {
				logger.Logger(fmt.Sprintf("⏭️  %s is unchanged", path), logger.LogDebug)
			} else {
				rep.Warn("overwriting existing recipe %s", path)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return out, errors.Wrap(errors.ErrCodeWriteFailed, err, "cannot write %s", path)
		}
		logger.Logger(fmt.Sprintf("📝 Wrote %s", path), logger.LogInfo)
		out = append(out, Written{Kind: st.Kind.Name, Path: path})
	}

	if w.needsIcon(states) && f.IconPath != "" {
		png := filepath.Join(dir, f.SubjectName+".png")
		if err := w.Icons.ExtractIcon(ctx, f.IconPath, png); err != nil {
			rep.Warn("cannot extract icon for %s: %v", f.SubjectName, err)
		} else {
			logger.Logger(fmt.Sprintf("🖼️  Wrote %s", png), logger.LogInfo)
		}
	}
	return out, nil
}

func (w *Writer) needsIcon(states recipe.States) bool {
	if w.Icons == nil {
		return false
	}
	for _, name := range iconKinds {
		if st := states.Get(name); st != nil && st.Selected && st.Document != nil {
			return true
		}
	}
	return false
}
