package parse

import "strings"

// Labels of the --stats lines that make up a Summary.
const (
	LabelFilesTotal       = "Number of files"
	LabelFilesTransferred = "Number of regular files transferred"
	LabelFilesDeleted     = "Number of deleted files"
	LabelTotalSize        = "Total file size"
	LabelTotalTransferred = "Total transferred file size"
)

// Summary holds the counters rsync reports at the end of a run. A nil field
// was not found in the output; it never means zero.
type Summary struct {
	FilesTotal       *string `json:"filesTotal,omitempty"`
	FilesTransferred *string `json:"filesTransferred,omitempty"`
	FilesDeleted     *string `json:"filesDeleted,omitempty"`
	TotalSize        *string `json:"totalSize,omitempty"`
	TotalTransferred *string `json:"totalTransferred,omitempty"`
}

// Field is one labeled Summary value.
type Field struct {
	Label string
	Value string
}

// ParseStats extracts a Summary from the newline-joined output of a run.
// For each label the first line starting with it wins, and its value is the
// text after the first colon with surrounding space removed.
func ParseStats(output string) Summary {
	lines := strings.Split(output, "\n")
	return Summary{
		FilesTotal:       pick(lines, LabelFilesTotal),
		FilesTransferred: pick(lines, LabelFilesTransferred),
		FilesDeleted:     pick(lines, LabelFilesDeleted),
		TotalSize:        pick(lines, LabelTotalSize),
		TotalTransferred: pick(lines, LabelTotalTransferred),
	}
}

func pick(lines []string, label string) *string {
	for _, line := range lines {
		if !strings.HasPrefix(line, label) {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil
		}
		v := strings.TrimSpace(value)
		return &v
	}
	return nil
}

// Empty reports whether no counter was found.
func (s Summary) Empty() bool {
	return len(s.Fields()) == 0
}

// Fields returns the present counters in display order.
func (s Summary) Fields() []Field {
	all := []struct {
		label string
		value *string
	}{
		{LabelFilesTotal, s.FilesTotal},
		{LabelFilesTransferred, s.FilesTransferred},
		{LabelFilesDeleted, s.FilesDeleted},
		{LabelTotalSize, s.TotalSize},
		{LabelTotalTransferred, s.TotalTransferred},
	}

	var fields []Field
	for _, f := range all {
		if f.value != nil {
			fields = append(fields, Field{Label: f.label, Value: *f.value})
		}
	}
	return fields
}

// String renders the present counters on one line, e.g.
// "Number of files: 120 · Total file size: 4.50M".
func (s Summary) String() string {
	fields := s.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Label + ": " + f.Value
	}
	return strings.Join(parts, " · ")
}
