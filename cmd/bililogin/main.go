package main

import "github.com/shanmiteko/bili-login/cmd/bililogin/cmd"

func main() {
	cmd.Execute()
}
