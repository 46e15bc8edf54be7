package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePDFs_Concatenates(t *testing.T) {
	dir := t.TempDir()
	a := makePDFFile(t, dir, "001_wiki_A.pdf", "first article")
	b := makePDFFile(t, dir, "002_wiki_B.pdf", "second article")
	out := filepath.Join(dir, "merged.pdf")

	require.NoError(t, mergePDFs([]string{a, b}, out, discardLogger()))

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestMergePDFs_SingleFileCopied(t *testing.T) {
	dir := t.TempDir()
	a := makePDFFile(t, dir, "001_wiki_A.pdf", "only article")
	out := filepath.Join(dir, "merged.pdf")

	require.NoError(t, mergePDFs([]string{a}, out, discardLogger()))

	want, err := os.ReadFile(a)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMergePDFs_SkipsUnusable(t *testing.T) {
	dir := t.TempDir()
	a := makePDFFile(t, dir, "001_wiki_A.pdf", "good")
	corrupt := filepath.Join(dir, "002_wiki_B.pdf")
	require.NoError(t, os.WriteFile(corrupt, []byte("<html>rate limited</html>"), 0o644))
	empty := filepath.Join(dir, "003_wiki_C.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	c := makePDFFile(t, dir, "004_wiki_D.pdf", "also good")
	missing := filepath.Join(dir, "005_wiki_E.pdf")

	valid := usablePDFs([]string{a, corrupt, empty, c, missing}, discardLogger())
	assert.Equal(t, []string{a, c}, valid)

	out := filepath.Join(dir, "merged.pdf")
	require.NoError(t, mergePDFs([]string{a, corrupt, empty, c, missing}, out, discardLogger()))
	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestMergePDFs_NothingUsable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "merged.pdf")

	assert.ErrorIs(t, mergePDFs(nil, out, discardLogger()), errNothingMerged)
	assert.ErrorIs(t, mergePDFs([]string{filepath.Join(dir, "gone.pdf")}, out, discardLogger()), errNothingMerged)
	assert.NoFileExists(t, out)
}

func TestMergePDFs_ReplacesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "merged.pdf")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))
	a := makePDFFile(t, dir, "001_wiki_A.pdf", "fresh")

	require.NoError(t, mergePDFs([]string{a}, out, discardLogger()))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestMergePDFs_SkipsFailedAppend(t *testing.T) {
	dir := t.TempDir()
	a := makePDFFile(t, dir, "001_wiki_A.pdf", "first")
	b := makePDFFile(t, dir, "002_wiki_B.pdf", "refused")
	c := makePDFFile(t, dir, "003_wiki_C.pdf", "third")

	orig := appendPDF
	t.Cleanup(func() { appendPDF = orig })
	appendPDF = func(acc, next, out string) error {
		if next == b {
			return errors.New("broken cross-reference table")
		}
		return orig(acc, next, out)
	}

	out := filepath.Join(dir, "merged.pdf")
	require.NoError(t, mergePDFs([]string{a, b, c}, out, discardLogger()))

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no intermediate files should remain")
}
