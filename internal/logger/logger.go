package logger

import (
	"fmt"
	"time"
)

// ANSI color codes. Terminals that don't support them just show the raw
// escape sequences, which is acceptable for a developer tool.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func line(color, level, tag, msg string) {
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		dim, timestamp(), reset,
		color, level, reset,
		bold, tag, reset,
		msg)
}

// Info logs a neutral informational message under the given tag.
func Info(tag, msg string) {
	line(cyan, "INFO", tag, msg)
}

// Success logs a completed operation under the given tag.
func Success(tag, msg string) {
	line(green, "OK", tag, msg)
}

// Warn logs a recoverable problem under the given tag.
func Warn(tag, msg string) {
	line(yellow, "WARN", tag, msg)
}

// Error logs a failure under the given tag.
func Error(tag, msg string) {
	line(red, "ERROR", tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%s", bold, cyan)
	fmt.Println(`  ___ __      __ ___                                    _     _   `)
	fmt.Println(` / __|\ \    / /|_  )___  __ ___  _ _  ___  _ __  (_)___| |_  `)
	fmt.Println("| (_ | \\ \\/\\/ /  / // -_)/ _/ _ \\| ' \\/ _ \\| '  \\ | (_-<|  _|")
	fmt.Println(` \___|  \_/\_/  /___\___|\__\___/|_||_\___/|_|_|_||_/__/ \__|`)
	fmt.Printf("%s", reset)
	fmt.Printf("%sGW2 crafting economist %s%s\n\n", dim, version, reset)
}

// Section prints a visual separator with a title.
func Section(title string) {
	fmt.Printf("\n%s%s── %s %s%s\n", bold, cyan, title, "──────────────────────────────", reset)
}

// Stats prints a key/value statistic line.
func Stats(key string, value interface{}) {
	fmt.Printf("  %s%-24s%s %v\n", dim, key, reset, value)
}
