package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var loginUsername = ""

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account name, prompted for when empty")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in interactively",
	Long: "Log in interactively. The geetest gt and challenge are printed so an " +
		"external solver can produce the validate and seccode values.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := newFlow(ctx)
		if err != nil {
			return err
		}
		defer f.close()

		username := loginUsername
		if username == "" {
			username, err = (&promptui.Prompt{Label: "Username", Validate: notEmpty}).Run()
			if err != nil {
				return err
			}
		}

		for {
			password, err := (&promptui.Prompt{Label: "Password", Mask: '*', Validate: notEmpty}).Run()
			if err != nil {
				return err
			}

			params, err := f.client.BeginLogin(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "gt:        %s\nchallenge: %s\n", params.GT, params.Challenge)

			validate, err := (&promptui.Prompt{Label: "Validate", Validate: notEmpty}).Run()
			if err != nil {
				return err
			}
			seccode, err := (&promptui.Prompt{Label: "Seccode", Validate: notEmpty}).Run()
			if err != nil {
				return err
			}

			res, err := f.client.CompleteLogin(ctx, validate, seccode)
			if err != nil {
				return err
			}
			if res.OK() {
				fmt.Fprintf(os.Stdout, "logged in, continue at %s\n", res.RedirectURL)
				return nil
			}

			fmt.Fprintf(os.Stdout, "login rejected: %s\n", res.Message)
			retry := promptui.Prompt{Label: "Fetch a new challenge and try again", IsConfirm: true}
			if _, err := retry.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					return nil
				}
				return err
			}
			if err := f.client.Reset(ctx); err != nil {
				return err
			}
		}
	},
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("must not be empty")
	}
	return nil
}
