package main

import "github.com/meysamhadeli/codai-scope/cmd"

func main() {
	cmd.Execute()
}
