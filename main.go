package main

import "sparkload/cmd"

func main() {
	cmd.Execute()
}
