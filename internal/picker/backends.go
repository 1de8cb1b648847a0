package picker

import (
	"fmt"
	"path/filepath"
	"strings"
)

// osascript drives AppleScript's standard dialogs.
type osascript struct{}

func (osascript) name() string { return "osascript" }

func (osascript) selectDirectory(initial string) []string {
	script := `POSIX path of (choose folder with prompt "Select a folder"`
	if initial != "" {
		script += fmt.Sprintf(` default location POSIX file %s`, appleQuote(initial))
	}
	script += ")"
	return []string{"osascript", "-e", script}
}

func (osascript) saveFile(dir, defaultName string) []string {
	script := fmt.Sprintf(`POSIX path of (choose file name with prompt "Save" default name %s`, appleQuote(defaultName))
	if dir != "" {
		script += fmt.Sprintf(` default location POSIX file %s`, appleQuote(dir))
	}
	script += ")"
	return []string{"osascript", "-e", script}
}

// AppleScript reports a dismissed dialog as error -128.
func (osascript) canceled(_ int, stderr string) bool {
	return strings.Contains(stderr, "-128")
}

// appleQuote renders s as an AppleScript string literal.
func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// zenity drives the GTK file chooser.
type zenity struct{}

func (zenity) name() string { return "zenity" }

func (zenity) selectDirectory(initial string) []string {
	args := []string{"zenity", "--file-selection", "--directory", "--title=Select a folder"}
	if initial != "" {
		// A trailing separator makes zenity open the directory itself.
		args = append(args, "--filename="+strings.TrimSuffix(initial, "/")+"/")
	}
	return args
}

func (zenity) saveFile(dir, defaultName string) []string {
	return []string{
		"zenity", "--file-selection", "--save", "--confirm-overwrite", "--title=Save",
		"--filename=" + filepath.Join(dir, defaultName),
		"--file-filter=Text | *.txt *.log",
	}
}

// zenity exits 1 without output when the dialog is closed.
func (zenity) canceled(code int, _ string) bool {
	return code == 1
}
