package plan

import (
	"fmt"
	"path/filepath"

	"github.com/eugenenazirov/disk-span/internal/binpack"
)

// Item is a packed entry that can be moved: its String form is the source path.
type Item interface {
	binpack.Sizer
	fmt.Stringer
}

// Label returns the directory name for the bin at index.
func Label(index int) string {
	return fmt.Sprintf("disk%03d", index)
}

// Directory returns the destination directory for the bin at index.
func Directory(destRoot string, index int) string {
	return filepath.Join(destRoot, Label(index))
}

// Summary describes one bin of a plan.
type Summary struct {
	Index  int
	Label  string
	Files  int
	Used   int64
	Unused int64
}

func (s Summary) String() string {
	return fmt.Sprintf("Disc %3d: %d files, total size %d bytes, unused space %d bytes.", s.Index, s.Files, s.Used, s.Unused)
}

// Summarize reports occupancy for every bin against capacity.
func Summarize[T binpack.Sizer](bins []*binpack.Bin[T], capacity int64) []Summary {
	out := make([]Summary, 0, len(bins))
	for i, bin := range bins {
		out = append(out, Summary{
			Index:  i,
			Label:  Label(i),
			Files:  bin.Len(),
			Used:   bin.Used(),
			Unused: capacity - bin.Used(),
		})
	}
	return out
}
