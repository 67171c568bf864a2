// Package layout maps logical entry dates to vault-relative file paths.
//
// The mapping is bijective: DateFor(PathFor(d)) == d for every
// representable date, which is what makes the content index rebuildable
// from a plain directory scan.
package layout

import (
	"fmt"
	"path"
	"strings"

	"github.com/halvard/skriva/internal/entry"
)

// EntriesDir is the subdirectory of the vault root holding all entries.
const EntriesDir = "entries"

// Ext is the entry file extension.
const Ext = ".md"

// PathFor returns the vault-relative path for a date:
// entries/YYYY/MM/YYYY-MM-DD.md. Paths use forward slashes; the storage
// provider converts to the platform separator.
func PathFor(d entry.Date) string {
	return fmt.Sprintf("%s/%04d/%02d/%s%s", EntriesDir, d.Year, int(d.Month), d.String(), Ext)
}

// DateFor parses a vault-relative path back into its date. It returns
// ok=false (never an error) for any path that does not follow the
// convention, so directory scans can simply skip foreign files.
func DateFor(p string) (entry.Date, bool) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	parts := strings.Split(p, "/")
	if len(parts) != 4 || parts[0] != EntriesDir {
		return entry.Date{}, false
	}
	name, found := strings.CutSuffix(parts[3], Ext)
	if !found {
		return entry.Date{}, false
	}
	d, err := entry.ParseDate(name)
	if err != nil {
		return entry.Date{}, false
	}
	// The year/month directories must agree with the file name; a file
	// moved into the wrong bucket is treated as foreign.
	if parts[1] != fmt.Sprintf("%04d", d.Year) || parts[2] != fmt.Sprintf("%02d", int(d.Month)) {
		return entry.Date{}, false
	}
	return d, true
}
