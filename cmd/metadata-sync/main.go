package main

import "metadata-sync/cmd"

func main() {
	cmd.Execute()
}
