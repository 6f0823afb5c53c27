package main

import "paeshift-backend/cmd"

func main() {
	cmd.Run()
}
