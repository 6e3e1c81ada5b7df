// Package progressbar renders download progress on an interactive terminal.
package progressbar
