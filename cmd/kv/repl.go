package kv

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive key-value shell",
		Long: `Interactive key-value shell using a line-based shorthand:

  key:value    sets the value for a key
  key          reads the value for a key
  exit         leaves the shell

The shorthand is translated to regular SET/GET commands, values
containing ':' work by splitting on the first ':' only.`,
		RunE: runRepl,
	}
)

func runRepl(cmd *cobra.Command, _ []string) error {
	fmt.Println("rKV interactive shell. 'key:value' sets, 'key' gets, 'exit' quits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if key, value, isSet := strings.Cut(line, ":"); isSet {
			if err := rpcClient.Set(key, []byte(value)); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("OK")
		} else {
			value, found, err := rpcClient.Get(key)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			if !found {
				fmt.Println("(not found)")
				continue
			}
			fmt.Printf("%s\n", value)
		}
	}
}
