// Command safelens packages and verifies Safe multisig transaction
// evidence: `package` assembles a self-contained, offline-verifiable
// evidence package from a pending transaction; `verify` reads that package
// back and renders a graded trust verdict without trusting the node that
// originally served it.
package main

import (
	"fmt"
	"os"

	"github.com/safelens/evidence/pkg/interpret"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "package":
		err = runPackage(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "safelens: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "safelens: %v\n", err)
		os.Exit(1)
	}
}

// installDescriptors loads the descriptor table at path (when one is
// configured) and installs it as the process-wide index the generic
// interpreter fallback consults.
func installDescriptors(path string) error {
	if path == "" {
		return nil
	}
	idx, err := interpret.LoadDescriptorFile(path)
	if err != nil {
		return err
	}
	interpret.SetGlobalIndex(idx)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  safelens package <safe-url> --dto <path> [--rpc-url URL] [--block finalized|safe|latest|N] [--out path] [--metrics-addr host:port]
  safelens verify <path> [--json]`)
}
