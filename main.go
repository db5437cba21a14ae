package main

import (
	cmd "github.com/zimage-studio/zimage-server/cmd/zimage"
)

func main() {
	cmd.Execute()
}
