package plan

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/eugenenazirov/disk-span/internal/binpack"
)

// ScriptName is the file name the plan command writes by default.
const ScriptName = "move_files.sh"

var (
	quoteReplacer   = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	commentReplacer = strings.NewReplacer("\n", " ", "\r", " ")
)

// WriteScript renders a bash script that moves every item of every bin into
// its disk directory below destRoot.
func WriteScript[T Item](w io.Writer, bins []*binpack.Bin[T], capacity int64, destRoot string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "#!/usr/bin/env bash")
	fmt.Fprintf(bw, "# %d disks of %d bytes\n", len(bins), capacity)
	fmt.Fprintln(bw, "set -euo pipefail")

	for i, s := range Summarize(bins, capacity) {
		dir := Directory(destRoot, i)
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "# These files will be moved to %s/ (%d files, %d bytes, %d bytes free)\n", commentReplacer.Replace(dir), s.Files, s.Used, s.Unused)
		fmt.Fprintf(bw, "mkdir -p -- %s\n", quote(dir))
		for _, item := range bins[i].Contents() {
			fmt.Fprintf(bw, "mv -- %s %s\n", quote(item.String()), quote(dir+"/"))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

// ValidateScript parses a rendered script as bash and reports syntax errors.
func ValidateScript(r io.Reader) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(r, ScriptName); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
