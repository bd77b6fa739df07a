package tailor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LatexCompiler runs an external LaTeX engine such as pdflatex.
type LatexCompiler struct {
	command string
	passes  int
	timeout time.Duration
}

// NewLatexCompiler uses command, or pdflatex when empty.
func NewLatexCompiler(command string) *LatexCompiler {
	if command == "" {
		command = "pdflatex"
	}
	return &LatexCompiler{command: command, passes: 2, timeout: 30 * time.Second}
}

var auxExtensions = []string{".tex", ".aux", ".log", ".out", ".toc"}

// Compile writes source to a scratch file in outputDir, runs the engine and
// moves the PDF to baseName.pdf, adding a counter if that name is taken.
func (c *LatexCompiler) Compile(ctx context.Context, source, outputDir, baseName string) (string, error) {
	if _, err := exec.LookPath(c.command); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", c.command, err)
	}

	scratch := "build_" + uuid.NewString()
	texPath := filepath.Join(outputDir, scratch+".tex")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("writing source: %w", err)
	}
	defer func() {
		for _, ext := range auxExtensions {
			os.Remove(filepath.Join(outputDir, scratch+ext))
		}
	}()

	// Two passes resolve references.
	for range c.passes {
		if err := c.run(ctx, outputDir, texPath); err != nil {
			return "", err
		}
	}

	dest := availablePath(outputDir, baseName, ".pdf")
	if err := os.Rename(filepath.Join(outputDir, scratch+".pdf"), dest); err != nil {
		return "", fmt.Errorf("moving compiled document: %w", err)
	}
	return filepath.Abs(dest)
}

func (c *LatexCompiler) run(ctx context.Context, outputDir, texPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, "-interaction=nonstopmode", "-output-directory="+outputDir, texPath)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", c.command, c.timeout)
		}
		return fmt.Errorf("%s failed: %w: %s", c.command, err, tail(out.String(), 500))
	}
	return nil
}

// availablePath returns dir/base+ext, or dir/base_N+ext for the first N not
// already taken.
func availablePath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, base+"_"+strconv.Itoa(n)+ext)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
