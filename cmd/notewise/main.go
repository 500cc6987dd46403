// Command notewise indexes a markdown vault and answers questions about it.
package main

import (
	"github.com/custodia-labs/notewise/internal/adapters/driving/cli"
	"github.com/custodia-labs/notewise/internal/app"
)

func main() {
	cli.SetBootstrap(app.Bootstrap)
	cli.Execute()
}
