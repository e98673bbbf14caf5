// Package category loads per-category JSON metadata files that describe
// which source images belong to the train and test splits.
package category

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/normalize"
	"github.com/realiad/iad-layout/internal/validation"
)

// Document is the on-disk JSON shape of one category metadata file.
type Document struct {
	Meta  Meta        `json:"meta" validate:"required"`
	Train []TrainItem `json:"train" validate:"dive"`
	Test  []TestItem  `json:"test" validate:"dive"`
}

// Meta holds the category-wide settings.
type Meta struct {
	NormalClass string `json:"normal_class" validate:"required,pathsegment"`
	// Prefix is required but may be empty, so absence is tracked with a pointer.
	Prefix *string `json:"prefix" validate:"required,relpath"`
}

// TrainItem is one train-split entry. AnomalyClass defaults to the normal class.
type TrainItem struct {
	ImagePath    string `json:"image_path" validate:"required,samplepath"`
	AnomalyClass string `json:"anomaly_class,omitempty" validate:"omitempty,pathsegment"`
}

// TestItem is one test-split entry.
type TestItem struct {
	ImagePath    string `json:"image_path" validate:"required,samplepath"`
	AnomalyClass string `json:"anomaly_class" validate:"required,pathsegment"`
	MaskPath     string `json:"mask_path,omitempty" validate:"omitempty,samplepath"`
}

// Sample is a resolved sample ready for linking. Paths are relative to the
// image root and already include the category prefix.
type Sample struct {
	ImagePath string
	MaskPath  string
	Label     string
	Anomalous bool
}

// Category is the immutable, validated form of a metadata file.
type Category struct {
	Name        string
	Source      string
	NormalClass string
	Prefix      string
	Train       []Sample
	Test        []Sample
	// SkippedTrain counts train entries labeled with a non-normal class.
	SkippedTrain int
}

// NameFromPath derives the category name from a metadata file name: "bottle.json" -> "bottle".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return normalize.Label(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Load reads, normalizes, and validates one metadata file.
// Every failure is reported as MALFORMED_METADATA so callers can skip just this category.
func Load(path string, v *validation.Validator) (*Category, error) {
	name := NameFromPath(path)
	if !validation.IsPathSegment(name) {
		return nil, errors.MalformedMetadataf("%s: category name %q is not a valid directory name", path, name)
	}

	data, err := os.ReadFile(path) //#nosec G304 -- metadata paths come from the operator
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeMalformedMetadata, "read %s", path)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeMalformedMetadata, "parse %s", path)
	}

	doc.normalize()
	if err := v.ValidateAs(doc, errors.CodeMalformedMetadata, path); err != nil {
		return nil, err
	}

	cat := doc.resolve(name)
	cat.Source = path
	return cat, nil
}

// Parse decodes a metadata document without validating it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return &doc, nil
}

func (d *Document) normalize() {
	d.Meta.NormalClass = normalize.Label(d.Meta.NormalClass)
	if d.Meta.Prefix != nil {
		p := normalize.RelPath(*d.Meta.Prefix)
		if p == "." {
			p = ""
		}
		d.Meta.Prefix = &p
	}
	for i := range d.Train {
		d.Train[i].ImagePath = normalize.RelPath(d.Train[i].ImagePath)
		d.Train[i].AnomalyClass = normalize.Label(d.Train[i].AnomalyClass)
	}
	for i := range d.Test {
		d.Test[i].ImagePath = normalize.RelPath(d.Test[i].ImagePath)
		d.Test[i].AnomalyClass = normalize.Label(d.Test[i].AnomalyClass)
		d.Test[i].MaskPath = normalize.RelPath(d.Test[i].MaskPath)
	}
}

func (d *Document) resolve(name string) *Category {
	prefix := ""
	if d.Meta.Prefix != nil {
		prefix = *d.Meta.Prefix
	}
	normal := d.Meta.NormalClass

	cat := &Category{
		Name:        name,
		NormalClass: normal,
		Prefix:      prefix,
		Train:       make([]Sample, 0, len(d.Train)),
		Test:        make([]Sample, 0, len(d.Test)),
	}

	for _, item := range d.Train {
		if item.AnomalyClass != "" && item.AnomalyClass != normal {
			cat.SkippedTrain++
			continue
		}
		cat.Train = append(cat.Train, Sample{
			ImagePath: joinPrefix(prefix, item.ImagePath),
			Label:     normal,
		})
	}

	for _, item := range d.Test {
		s := Sample{
			ImagePath: joinPrefix(prefix, item.ImagePath),
			Label:     item.AnomalyClass,
			Anomalous: item.AnomalyClass != normal,
		}
		if item.MaskPath != "" {
			s.MaskPath = joinPrefix(prefix, item.MaskPath)
		}
		cat.Test = append(cat.Test, s)
	}

	return cat
}

func joinPrefix(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

// Resolve returns the absolute location of a sample path under the image root.
func Resolve(imageRoot, rel string) string {
	return filepath.Join(imageRoot, filepath.FromSlash(rel))
}
