package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const version = "0.1.0"

// console prints the human facing startup report. Logs go to the logger;
// this is only the summary an operator reads once.
type console struct {
	w     io.Writer
	width int
}

func newConsole(w io.Writer) *console {
	return &console{w: w, width: 46}
}

func (c *console) banner() {
	title := "Kestrel  v" + version
	inner := c.width - 2
	pad := inner - utf8.RuneCountInString(title)
	left := pad / 2
	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "\033[36;1m  ┌%s┐\033[0m\n", strings.Repeat("─", inner))
	fmt.Fprintf(c.w, "\033[36;1m  │\033[0m%s%s%s\033[36;1m│\033[0m\n",
		strings.Repeat(" ", left), title, strings.Repeat(" ", pad-left))
	fmt.Fprintf(c.w, "\033[36;1m  └%s┘\033[0m\n", strings.Repeat("─", inner))
	fmt.Fprintln(c.w)
}

// fill returns at least three repetitions of r so that used+fill spans the
// console width.
func (c *console) fill(r string, used int) string {
	return strings.Repeat(r, max(c.width-used, 3))
}

func (c *console) section(title string) {
	fmt.Fprintf(c.w, "  \033[33m── %s %s\033[0m\n", title, c.fill("─", utf8.RuneCountInString(title)+4))
}

func (c *console) stat(label string, n int) {
	num := fmt.Sprint(n)
	fmt.Fprintf(c.w, "  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, c.fill("·", len(label)+len(num)+4), num)
}

func (c *console) ok(format string, args ...any) {
	fmt.Fprintf(c.w, "  \033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func (c *console) ready(format string, args ...any) {
	fmt.Fprintf(c.w, "  \033[32m▶\033[0m %s\n\n", fmt.Sprintf(format, args...))
}

func (c *console) blank() { fmt.Fprintln(c.w) }
