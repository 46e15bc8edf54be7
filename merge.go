package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var errNothingMerged = errors.New("no valid PDFs to merge")

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

func pdfConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// usablePDFs filters paths down to files that exist, are non-empty and
// pass pdfcpu validation, logging a warning for each one dropped.
func usablePDFs(paths []string, logger *log.Logger) []string {
	conf := pdfConfiguration()
	var valid []string
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			logger.Warn("skipping missing PDF", "path", p, "err", err)
			continue
		case info.Size() == 0:
			logger.Warn("skipping empty PDF", "path", p)
			continue
		}
		if err := api.ValidateFile(p, conf); err != nil {
			logger.Warn("skipping unreadable PDF", "path", p, "err", err)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// appendPDF writes acc followed by next to out.
var appendPDF = func(acc, next, out string) error {
	return api.MergeCreateFile([]string{acc, next}, out, false, pdfConfiguration())
}

// mergePDFs concatenates the usable files among paths, in order, into
// outPath. Files are appended one at a time and a file whose append fails
// is skipped. A single usable file is copied as is.
func mergePDFs(paths []string, outPath string, logger *log.Logger) error {
	valid := usablePDFs(paths, logger)
	if len(valid) == 0 {
		return errNothingMerged
	}
	logger.Info("merging PDFs", "files", len(valid), "skipped", len(paths)-len(valid), "output", outPath)

	if len(valid) == 1 {
		return writeAtomic(outPath, func(tmpPath string) error {
			return copyFile(valid[0], tmpPath)
		})
	}
	return writeAtomic(outPath, func(tmpPath string) error {
		if err := copyFile(valid[0], tmpPath); err != nil {
			return err
		}
		next := tmpPath + ".next"
		defer os.Remove(next)
		for _, p := range valid[1:] {
			if err := appendPDF(tmpPath, p, next); err != nil {
				logger.Warn("skipping PDF that could not be appended", "path", p, "err", err)
				continue
			}
			if err := os.Rename(next, tmpPath); err != nil {
				return fmt.Errorf("merging: %w", err)
			}
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
