package main

import "github.com/All-Rated-Extreme-Demon-List/AREDL-Manager-V4/cmd"

func main() {
	cmd.Execute()
}
