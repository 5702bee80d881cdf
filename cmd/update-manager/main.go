package main

import "github.com/oshokin/update-manager/cmd/update-manager/cmd"

func main() {
	cmd.Execute()
}
