package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Out is where all user-facing output goes. Tests replace it.
var Out io.Writer = os.Stdout

// Banner prints the run header.
func Banner(title, subtitle string) {
	fmt.Fprintln(Out, titleStyle.Render(title))
	if subtitle != "" {
		fmt.Fprintln(Out, dimStyle.Render(subtitle))
	}
	fmt.Fprintln(Out)
}

// Section prints a phase or stage header.
func Section(name string) {
	fmt.Fprintln(Out, sectionStyle.Render("== "+name+" =="))
}

// Successf prints a green check line.
func Successf(format string, args ...any) {
	fmt.Fprintln(Out, successStyle.Render(checkMark+" "+fmt.Sprintf(format, args...)))
}

// Failf prints a red cross line.
func Failf(format string, args ...any) {
	fmt.Fprintln(Out, failStyle.Render(crossMark+" "+fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow warning line.
func Warnf(format string, args ...any) {
	fmt.Fprintln(Out, warnStyle.Render(warnMark+" "+fmt.Sprintf(format, args...)))
}

// Infof prints a dim informational line.
func Infof(format string, args ...any) {
	fmt.Fprintln(Out, dimStyle.Render("   "+fmt.Sprintf(format, args...)))
}

// Pendingf prints a not-yet-run line.
func Pendingf(format string, args ...any) {
	fmt.Fprintln(Out, dimStyle.Render(pending+" "+fmt.Sprintf(format, args...)))
}

// Credential prints a name/value pair that is shown exactly once and never
// logged. The caller is responsible for only calling this once per value.
func Credential(name, value string) {
	fmt.Fprintf(Out, "  %s %s\n", dimStyle.Render(name+":"), credentialStyle.Render(value))
}

// Summary renders aligned key/value rows.
func Summary(rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		fmt.Fprintf(Out, "  %s  %s\n",
			dimStyle.Render(fmt.Sprintf("%-*s", width, r[0])),
			r[1])
	}
}

// List prints indented bullet lines.
func List(items []string) {
	for _, item := range items {
		fmt.Fprintln(Out, "  - "+item)
	}
}

// Divider prints a dim horizontal rule.
func Divider() {
	fmt.Fprintln(Out, dimStyle.Render(strings.Repeat("-", 48)))
}
