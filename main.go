// Package main is the glroster command: batch GitLab operations over a
// roster of students.
package main

import (
	"os"

	"github.com/apiarycd/glroster/internal"
)

func main() {
	os.Exit(internal.Run(os.Args[1:]))
}
