// The main package for the linkstash executable.
package main

import (
	"github.com/JakeFAU/linkstash/cmd"
)

func main() {
	cmd.Execute()
}
