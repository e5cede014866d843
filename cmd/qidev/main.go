package main

import "github.com/oshokin/qidev/cmd/qidev/cmd"

func main() {
	cmd.Execute()
}
