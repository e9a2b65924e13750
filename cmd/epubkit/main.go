package main

import "github.com/jianyun8023/epubkit/cmd/epubkit/commands"

func main() {
	commands.Execute()
}
