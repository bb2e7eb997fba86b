package main

import "github.com/wekan-tools/github-wekan-sync/cmd"

func main() {
	cmd.Execute()
}
