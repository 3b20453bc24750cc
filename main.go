package main

import "github.com/ravipandeydu/interview-pro-sub002/cmd"

func main() {
	cmd.Execute()
}
