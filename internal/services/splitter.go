package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Splitter decomposes one multi-page source PDF into single-page PDFs in
// the scratch directory, preserving page order.
type Splitter struct {
	scratchDir string
}

func NewSplitter(scratchDir string) *Splitter {
	return &Splitter{scratchDir: scratchDir}
}

// Process splits the source into one file per page and returns their
// paths in source page order. Any failure here is ErrSourceUnreadable:
// with no pages produced there is nothing for the batch to process.
func (s *Splitter) Process(sourcePath string) ([]string, error) {
	logCtx := slog.With("source", sourcePath)
	logCtx.Info("Split process started.")

	if hash, err := fileSHA256(sourcePath); err == nil {
		logCtx.Info("Source scan identified.", "sha256", hash)
	}

	// Scanned inputs are frequently mildly corrupt; an optimize pass
	// with relaxed validation repairs what it can before splitting.
	optimizedPath := filepath.Join(s.scratchDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		logCtx.Error("Failed to validate/optimize source PDF", "error", err)
		return nil, fmt.Errorf("%w: optimize %s: %v", ErrSourceUnreadable, sourcePath, err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		logCtx.Error("Failed to get page count", "error", err)
		return nil, fmt.Errorf("%w: page count %s: %v", ErrSourceUnreadable, sourcePath, err)
	}

	if err := api.SplitFile(optimizedPath, s.scratchDir, 1, nil); err != nil {
		logCtx.Error("Failed to split source PDF", "error", err)
		return nil, fmt.Errorf("%w: split %s: %v", ErrSourceUnreadable, sourcePath, err)
	}

	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pagePath := filepath.Join(s.scratchDir, fmt.Sprintf("optimized_%d.pdf", i))
		pages = append(pages, pagePath)
		logCtx.Info("Page file created.", "page", i, "path", pagePath)
	}

	logCtx.Info("Split process finished.", "pageCount", pageCount)
	return pages, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func fileSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
