package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to X by hand and save the session",
	Long: `Opens a visible browser on the X login page. Log in, then press Enter in
this terminal; cookies and local storage are saved to browser.session_file and
reused by every later search and execution.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()
	return withApp(func(a *app) error {
		err := a.svc.Login(ctx, waitForEnter(os.Stdin, out))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Session saved to %s\n", cfg.Browser.SessionFile)
		return nil
	})
}

// waitForEnter blocks until a line is read from in or ctx is done.
func waitForEnter(in io.Reader, out io.Writer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		fmt.Fprintln(out, "Log in in the browser window, then press Enter here to save the session.")
		read := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(in).ReadString('\n')
			read <- err
		}()
		select {
		case err := <-read:
			if err != nil {
				return fmt.Errorf("no confirmation read: %w", err)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
