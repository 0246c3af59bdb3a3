package main

import "github.com/frahmantamala/research-vault/cmd"

func main() {
	cmd.Execute()
}
