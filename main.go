package main

import "github.com/gridtools/urlfilters/cmd"

func main() {
	cmd.Execute()
}
