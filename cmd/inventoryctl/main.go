package main

import "github.com/upb/catalog-inventory/cmd/inventoryctl/cmd"

func main() {
	cmd.Execute()
}
