// Package main provides the entry point for the election results scraper.
//
// Usage:
//
//	scraper run <index-url> <output-file>
//	scraper serve
//
// See --help for all available options.
package main

import "os"

func main() {
	os.Exit(Execute())
}
