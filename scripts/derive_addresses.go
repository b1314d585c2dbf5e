// derive_addresses.go prints addresses with checksums for a mnemonic, the
// same ones account setup would scan.
// Usage: go run scripts/derive_addresses.go <mnemonic-file> [security] [count]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-addrsync/internal/wallet"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_addresses <mnemonic-file> [security] [count]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	security, count := 2, 10
	if len(os.Args) > 2 {
		if security, err = strconv.Atoi(os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if len(os.Args) > 3 {
		if count, err = strconv.Atoi(os.Args[3]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	seed, err := wallet.SeedFromMnemonic(strings.TrimSpace(string(data)), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	d, err := wallet.NewDeriver(security)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	addrs, err := d.Addresses(context.Background(), seed, 0, count)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i, addr := range addrs {
		fmt.Printf("%d %s%s\n", i, addr, crypto.Checksum(addr))
	}
}
