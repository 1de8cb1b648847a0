// Package rsync describes one rsync invocation: the user-facing options, the
// argument vector they translate to, and where the rsync binary comes from.
//
// The subpackages hold the pieces that turn rsync's streaming output into
// typed events: lines (stream reassembly), parse (line classification and
// statistics), stage (run lifecycle) and runner (process supervision).
package rsync

import (
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
)

// Options is the immutable description of one sync request.
type Options struct {
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	Delete   bool   `json:"delete"`
	DryRun   bool   `json:"dryRun"`
	Checksum bool   `json:"checksum"`
}

// Validate reports a ValidationError when either path is missing.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Source) == "" {
		return errors.NewValidationError("source path is required").WithField("source")
	}
	if strings.TrimSpace(o.Dest) == "" {
		return errors.NewValidationError("destination path is required").WithField("dest")
	}
	return nil
}

// Normalized returns a copy whose paths end in a separator, so rsync copies
// the contents of the source directory rather than the directory itself.
func (o Options) Normalized() Options {
	o.Source = withTrailingSeparator(o.Source)
	o.Dest = withTrailingSeparator(o.Dest)
	return o
}

// Args builds the rsync argument vector:
//
//	-a -h --stats --info=progress2 [--checksum] [--delete] [--dry-run] <source/> <dest/>
func (o Options) Args() []string {
	n := o.Normalized()

	args := []string{"-a", "-h", "--stats", "--info=progress2"}
	if n.Checksum {
		args = append(args, "--checksum")
	}
	if n.Delete {
		args = append(args, "--delete")
	}
	if n.DryRun {
		args = append(args, "--dry-run")
	}
	return append(args, n.Source, n.Dest)
}

func withTrailingSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}
