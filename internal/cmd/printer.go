package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// printer writes run output to the terminal, colored when enabled.
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out, errOut io.Writer, mode string) (*printer, error) {
	useColors, err := resolveColors(mode, out)
	if err != nil {
		return nil, err
	}
	return &printer{out: out, err: errOut, useColors: useColors}, nil
}

func resolveColors(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false, nil
		}
		f, ok := out.(*os.File)
		return ok && f == os.Stdout && !color.NoColor, nil
	default:
		return false, fmt.Errorf("invalid color mode %q: must be auto, always, or never", mode)
	}
}

func (p *printer) print(attr color.Attribute, w io.Writer, prefix, plain, format string, args ...any) {
	if p.useColors {
		c := color.New(attr)
		c.EnableColor()
		c.Fprintf(w, prefix+format+"\n", args...)
		return
	}
	fmt.Fprintf(w, plain+format+"\n", args...)
}

func (p *printer) Info(format string, args ...any) {
	p.print(color.FgCyan, p.out, "", "", format, args...)
}

func (p *printer) Success(format string, args ...any) {
	p.print(color.FgGreen, p.out, "✓ ", "[OK] ", format, args...)
}

func (p *printer) Warning(format string, args ...any) {
	p.print(color.FgYellow, p.err, "⚠ ", "[WARN] ", format, args...)
}

func (p *printer) Error(format string, args ...any) {
	p.print(color.FgRed, p.err, "✗ ", "[ERROR] ", format, args...)
}
