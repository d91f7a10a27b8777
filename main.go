package main

import "github.com/vibast-solutions/ms-go-payment-processing/cmd"

func main() {
	cmd.Execute()
}
