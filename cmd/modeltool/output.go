package main

import (
	"fmt"
	"io"

	"modeltool/internal/tui/styles"
)

// printer writes themed status lines to a command's output.
type printer struct {
	w     io.Writer
	theme styles.Theme
}

func newPrinter(w io.Writer, theme styles.Theme) *printer {
	return &printer{w: w, theme: theme}
}

func (p *printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.theme.Success.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.theme.Info.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.theme.Warning.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.theme.Error.Render(fmt.Sprintf(format, args...)))
}

// Plain writes an unstyled line.
func (p *printer) Plain(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// errorText styles a fatal error before any configuration is loaded.
func errorText(text string) string {
	return styles.FromConfig(nil).Error.Render("Error: " + text)
}
