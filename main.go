package main

import "wikiqa/cmd"

func main() {
	cmd.Execute()
}
