package builder

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/realiad/iad-layout/internal/category"
	"github.com/realiad/iad-layout/internal/errors"
)

// Split and directory names of the generated layout.
const (
	SplitTrain       = "train"
	SplitTest        = "test"
	SplitGroundTruth = "ground_truth"
)

// Kind distinguishes image links from mask links.
type Kind string

// Entry kinds.
const (
	KindImage Kind = "image"
	KindMask  Kind = "mask"
)

// Entry is one planned symlink.
type Entry struct {
	Source      string // absolute path of the original file
	Destination string // absolute path of the link
	Kind        Kind
	Split       string
	Label       string
	// Missing is set when Source does not exist; no link is created for it.
	Missing bool
}

// Plan is the set of links for one category, in metadata order.
type Plan struct {
	Category   *category.Category
	Root       string // <output>/<category>
	Entries    []Entry
	Duplicates int
}

type sourceState int

const (
	sourceFile sourceState = iota
	sourceMissing
	sourceDir
)

// statFunc classifies a source path. Tests swap it out to avoid touching disk.
type statFunc func(path string) sourceState

func statSource(p string) sourceState {
	info, err := os.Stat(p)
	switch {
	case err != nil:
		return sourceMissing
	case info.IsDir():
		return sourceDir
	default:
		return sourceFile
	}
}

// Destination returns <output>/<category>/<split>/<label>/<basename of rel>.
func Destination(outputDir, categoryName, split, label, rel string) string {
	return filepath.Join(outputDir, categoryName, split, label, path.Base(rel))
}

// BuildPlan derives every link for a category and checks that no two different
// sources land on the same destination. Identical source/destination pairs
// (the same sample listed twice) are folded into one entry. A source that is a
// directory fails the whole category: a link to it would make the image tree
// writable through the output.
func BuildPlan(cat *category.Category, imageDir, outputDir string, stat statFunc) (*Plan, error) {
	if stat == nil {
		stat = statSource
	}

	plan := &Plan{
		Category: cat,
		Root:     filepath.Join(outputDir, cat.Name),
		Entries:  make([]Entry, 0, len(cat.Train)+len(cat.Test)),
	}
	owners := make(map[string]string, cap(plan.Entries))
	var collisions, dirs []string

	missing := func(src string) bool {
		switch stat(src) {
		case sourceMissing:
			return true
		case sourceDir:
			dirs = append(dirs, src)
		}
		return false
	}

	add := func(e Entry) {
		if prev, ok := owners[e.Destination]; ok {
			if prev == e.Source {
				plan.Duplicates++
				return
			}
			collisions = append(collisions, e.Destination+" <- "+prev+", "+e.Source)
			return
		}
		owners[e.Destination] = e.Source
		plan.Entries = append(plan.Entries, e)
	}

	for _, s := range cat.Train {
		src := category.Resolve(imageDir, s.ImagePath)
		add(Entry{
			Source:      src,
			Destination: Destination(outputDir, cat.Name, SplitTrain, s.Label, s.ImagePath),
			Kind:        KindImage,
			Split:       SplitTrain,
			Label:       s.Label,
			Missing:     missing(src),
		})
	}

	for _, s := range cat.Test {
		src := category.Resolve(imageDir, s.ImagePath)
		img := Entry{
			Source:      src,
			Destination: Destination(outputDir, cat.Name, SplitTest, s.Label, s.ImagePath),
			Kind:        KindImage,
			Split:       SplitTest,
			Label:       s.Label,
			Missing:     missing(src),
		}
		add(img)

		// A mask is only linked alongside its image.
		if s.MaskPath == "" || img.Missing {
			continue
		}
		maskSrc := category.Resolve(imageDir, s.MaskPath)
		add(Entry{
			Source:      maskSrc,
			Destination: Destination(outputDir, cat.Name, SplitGroundTruth, s.Label, s.MaskPath),
			Kind:        KindMask,
			Split:       SplitGroundTruth,
			Label:       s.Label,
			Missing:     missing(maskSrc),
		})
	}

	if len(dirs) > 0 {
		return plan, errors.MalformedMetadataf("category %s: %d sample path(s) resolve to a directory: %s",
			cat.Name, len(dirs), strings.Join(dirs, "; ")).
			WithDetails(dirs)
	}
	if len(collisions) > 0 {
		sort.Strings(collisions)
		return plan, errors.LinkCollisionf("category %s: %d destination(s) claimed by different sources: %s",
			cat.Name, len(collisions), strings.Join(collisions, "; ")).
			WithDetails(collisions)
	}
	return plan, nil
}

// Counts summarizes a plan by outcome.
func (p *Plan) Counts() (train, test, masks, missing int) {
	for _, e := range p.Entries {
		if e.Missing {
			missing++
			continue
		}
		switch {
		case e.Kind == KindMask:
			masks++
		case e.Split == SplitTrain:
			train++
		default:
			test++
		}
	}
	return train, test, masks, missing
}
