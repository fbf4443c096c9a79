// Package iohelp wraps github.com/maseology/mmio's CSV writer and
// file-existence helper for the output sinks.
package iohelp

import "github.com/maseology/mmio"

// Exists reports whether fp exists on disk.
func Exists(fp string) bool {
	_, ok := mmio.FileExists(fp)
	return ok
}

// Dir returns the directory component of fp.
func Dir(fp string) string {
	return mmio.GetFileDir(fp)
}

// WriteCSVColumns writes a header-plus-columns CSV.
func WriteCSVColumns(fp, header string, columns ...[]interface{}) error {
	return mmio.WriteCSV(fp, header, columns...)
}
