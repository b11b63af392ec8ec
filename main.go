package main

import "github.com/stafftrack/attendance/cmd"

func main() {
	cmd.Execute()
}
