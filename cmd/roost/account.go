package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/roost/sdk"
)

// envPassword is read when --password is not given.
const envPassword = "ROOST_PASSWORD"

var (
	password string

	loginCmd = &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and print the session token",
		Args:  cobra.ExactArgs(1),
		RunE:  login,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "End the session given with --session",
		Args:  cobra.NoArgs,
		RunE:  logout,
	}

	createUserCmd = &cobra.Command{
		Use:   "create-user [email]",
		Short: "Register a new account",
		Args:  cobra.ExactArgs(1),
		RunE:  createUser,
	}

	deviceIDCmd = &cobra.Command{
		Use:         "device-id",
		Short:       "Print the device id, creating it on first use",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offline: "true"},
		RunE:        deviceID,
	}
)

func registerAccountCommands(root *cobra.Command) {
	for _, cmd := range []*cobra.Command{loginCmd, createUserCmd} {
		cmd.Flags().StringVarP(&password, "password", "p", "", "account password ($"+envPassword+")")
	}
	root.AddCommand(loginCmd, logoutCmd, createUserCmd, deviceIDCmd)
}

func passwordFlag() (string, error) {
	if password != "" {
		return password, nil
	}
	if p := os.Getenv(envPassword); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("a password is required, use --password or $%s", envPassword)
}

func login(cmd *cobra.Command, args []string) error {
	pw, err := passwordFlag()
	if err != nil {
		return err
	}
	resp, err := svc.Login(cmd.Context(), args[0], pw)
	if err != nil {
		return err
	}
	token := resp.SessionToken()
	if !token.IsValid() {
		return report(cmd, resp.Envelope)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, token.Token())
	if exp := token.Expires(); !exp.IsZero() {
		fmt.Fprintf(cmd.ErrOrStderr(), "user %s, session expires %s\n", resp.UserID(), exp.Format(time.RFC3339))
	}
	return nil
}

func logout(cmd *cobra.Command, _ []string) error {
	if session == "" {
		return fmt.Errorf("--session is required")
	}
	env, err := svc.Logout(cmd.Context(), sdk.NewSessionToken(session, time.Time{}))
	if err != nil {
		return err
	}
	return report(cmd, env)
}

func createUser(cmd *cobra.Command, args []string) error {
	pw, err := passwordFlag()
	if err != nil {
		return err
	}
	resp, err := svc.CreateUser(cmd.Context(), args[0], pw, nil)
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func deviceID(cmd *cobra.Command, _ []string) error {
	ds, err := deviceStore()
	if err != nil {
		return err
	}
	if ds == nil {
		return fmt.Errorf("no device store, set --device-file or --device-redis")
	}
	id, err := sdk.DeviceID(cmd.Context(), ds)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
