package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// confirm asks a yes/no question on the command's terminal. A "no" answer
// returns false; Ctrl-C returns context.Canceled.
func confirm(cmd *cobra.Command, label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     io.NopCloser(cmd.InOrStdin()),
		Stdout:    nopWriteCloser{cmd.OutOrStdout()},
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, context.Canceled
	default:
		return false, fmt.Errorf("prompt failed: %w", err)
	}
}
