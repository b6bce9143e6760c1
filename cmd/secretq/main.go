// Command secretq runs the secret question step as an HTTP service and
// manages stored secret question credentials.
//
// Usage:
//
//	secretq serve --config secretq.yaml
//	secretq credential add alice "What is your surname?" Smith
//	secretq credential list alice
//	secretq report
//	secretq loadtest --users 1000 --ops 20000
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
