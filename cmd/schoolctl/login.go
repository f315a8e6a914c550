package main

import (
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the API token for future operations",
	Long: `Login stores the persistence API bearer token locally. Token
issuance itself happens outside schoolctl.`,
	Example: `  schoolctl login --token eyJhbGc...
  schoolctl login`,
	RunE: runLogin,
}

var loginToken string

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginToken, "token", "t", "",
		"API bearer token (will prompt if not provided)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginToken == "" {
		var err error
		loginToken, err = promptSecret("API token: ")
		if err != nil {
			return err
		}
	}

	if err := apiClient.SetToken(loginToken); err != nil {
		return err
	}

	printSuccess("Token stored.")
	return nil
}
