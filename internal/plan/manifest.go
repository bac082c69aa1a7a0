package plan

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/disk-span/internal/binpack"
)

// Manifest is the machine readable form of a plan.
type Manifest struct {
	Capacity    int64          `yaml:"capacity"`
	Destination string         `yaml:"destination"`
	Disks       int            `yaml:"disks"`
	Files       int            `yaml:"files"`
	Used        int64          `yaml:"used"`
	Unused      int64          `yaml:"unused"`
	Bins        []ManifestDisk `yaml:"bins"`
}

// ManifestDisk lists the content of one disk directory.
type ManifestDisk struct {
	Label     string         `yaml:"label"`
	Directory string         `yaml:"directory"`
	Used      int64          `yaml:"used"`
	Unused    int64          `yaml:"unused"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is a single moved item.
type ManifestFile struct {
	Path string `yaml:"path"`
	Size int64  `yaml:"size"`
}

// BuildManifest converts packed bins into a Manifest.
func BuildManifest[T Item](bins []*binpack.Bin[T], capacity int64, destRoot string) Manifest {
	stats := binpack.Summarize(bins)
	m := Manifest{
		Capacity:    capacity,
		Destination: destRoot,
		Disks:       stats.Bins,
		Files:       stats.Items,
		Used:        stats.Used,
		Unused:      stats.Unused,
		Bins:        make([]ManifestDisk, 0, len(bins)),
	}
	for i, bin := range bins {
		disk := ManifestDisk{
			Label:     Label(i),
			Directory: Directory(destRoot, i),
			Used:      bin.Used(),
			Unused:    bin.Remaining(),
			Files:     make([]ManifestFile, 0, bin.Len()),
		}
		for _, item := range bin.Contents() {
			disk.Files = append(disk.Files, ManifestFile{Path: item.String(), Size: item.Size()})
		}
		m.Bins = append(m.Bins, disk)
	}
	return m
}

// WriteManifest encodes the plan for bins as YAML.
func WriteManifest[T Item](w io.Writer, bins []*binpack.Bin[T], capacity int64, destRoot string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(BuildManifest(bins, capacity, destRoot)); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes a manifest previously written by WriteManifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
