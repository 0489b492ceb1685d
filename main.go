package main

import (
	"veridoc.mx/infrastructure"
)

func main() {
	infrastructure.Server.Start()
}
