package services

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ExtractText renders every page of the PDF at path to plain text and
// returns the concatenated, upper-cased result. The classifier's
// patterns are written against this normalized form.
func ExtractText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPageUnreadable, path, err)
	}
	defer doc.Close()

	var text strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("%w: %s page %d: %v", ErrPageUnreadable, path, i+1, err)
		}
		text.WriteString(pageText)
	}
	return strings.ToUpper(text.String()), nil
}
