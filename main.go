package main

import "daily-diet-backend/cmd"

func main() {
	cmd.Run()
}
