package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MergedName is the file name of merge output.
const MergedName = "merged.pdf"

// Base strips the directory and a trailing ".pdf" (any case) from name.
func Base(name string) string {
	name = filepath.Base(name)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "document"
	}
	return name
}

// SplitNames returns the names of both halves of a split.
func SplitNames(name string) (string, string) {
	b := Base(name)
	return b + "_Teil1.pdf", b + "_Teil2.pdf"
}

// ExtractName names a page range extracted from name.
func ExtractName(name string, from, to int) string {
	return fmt.Sprintf("%s_Seiten%d-%d.pdf", Base(name), from, to)
}

// OrganizedName names a reorganized document.
func OrganizedName(name string) string {
	return "organized_" + fileName(name)
}

// SignedName names a document with a stamped signature.
func SignedName(name string) string {
	return "signed_" + fileName(name)
}

// BlanksName names a document with inserted blank pages.
func BlanksName(name string) string {
	return Base(name) + "_with_blanks.pdf"
}

// AnnotatedName names a document with burned-in annotations.
func AnnotatedName(name string) string {
	return Base(name) + "_annotated.pdf"
}

// fileName is the last element of name as given
func fileName(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "document.pdf"
	}
	return name
}
