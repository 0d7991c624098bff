// Command aifbin-recall is a local-first retrieval service over
// pre-embedded .aif-bin semantic memory files.
package main

import "github.com/Terronex-dev/aifbin-recall/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
