package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/layer-3/signal/adapters/wallet"
)

// terminalConfirm shows the message to be signed and waits for y/N.
func terminalConfirm(in io.Reader, out io.Writer) wallet.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, message []byte) (bool, error) {
		fmt.Fprintf(out, "The wallet is asked to sign:\n\n%s\n\nSign this message? [y/N] ", message)

		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
