package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func success(format string, a ...any) {
	green.Printf("✓ "+format+"\n", a...)
}

func warning(format string, a ...any) {
	yellow.Printf("⚠️  "+format+"\n", a...)
}

// failure печатает ошибку в stderr и возвращает её для cobra
func failure(title string, err error) error {
	red.Fprintf(os.Stderr, "%s\n", title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	return fmt.Errorf("%s: %w", title, err)
}
