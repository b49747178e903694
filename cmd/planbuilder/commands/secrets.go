package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"planbuilder/internal/printer"
	"planbuilder/pkg/config"
)

//nolint:gochecknoglobals // cobra flags
var secretValue string

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the encrypted secrets file",
	Long: `Manage API keys stored in <project-dir>/.planbuilder/secrets.json.enc.

Known names: ` + fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s",
		config.EnvSambaNovaAPIKey, config.EnvOpenAIAPIKey, config.EnvAnthropicAPIKey,
		config.EnvGoogleAPIKey, config.EnvOllamaHost, config.EnvTrelloAPIKey, config.EnvTrelloToken) + `

The password is read from ` + EnvPassword + ` or prompted for.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var secretsSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Store a secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsSet,
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	Args:  cobra.NoArgs,
	RunE:  runSecretsList,
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsDelete,
}

func init() { //nolint:gochecknoinits // cobra wiring
	secretsSetCmd.Flags().StringVar(&secretValue, "value", "", "Secret value (prompted for when omitted)")
	secretsCmd.AddCommand(secretsSetCmd, secretsListCmd, secretsDeleteCmd)
	rootCmd.AddCommand(secretsCmd)
}

// sessionPassword unlocks an existing secrets file, or asks for a new password when there is none.
func sessionPassword() (string, error) {
	if config.SecretsFileExists(projectDir) {
		if err := unlockSecrets(); err != nil {
			return "", err
		}
		return config.GetSessionPassword(), nil
	}
	if password := os.Getenv(EnvPassword); password != "" {
		return password, nil
	}
	password, err := promptNewPassword()
	if err != nil {
		return "", printer.Error("No secrets password", err.Error(), []string{
			fmt.Sprintf("Set %s for non-interactive runs", EnvPassword),
		})
	}
	return password, nil
}

func runSecretsSet(_ *cobra.Command, args []string) error {
	name := args[0]
	password, err := sessionPassword()
	if err != nil {
		return err
	}

	value := secretValue
	if value == "" {
		value, err = readPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			return printer.Error("No secret value", err.Error(), []string{"Pass --value"})
		}
	}

	config.SetSecret(name, value)
	if err := config.SaveSecretsToFile(projectDir, password); err != nil {
		return printer.Error("Failed to save secrets", err.Error(), nil)
	}
	printer.Success("Stored %s", name)
	return nil
}

func runSecretsList(cmd *cobra.Command, _ []string) error {
	if !config.SecretsFileExists(projectDir) {
		printer.Info("No secrets file in %s", projectDir)
		return nil
	}
	if err := unlockSecrets(); err != nil {
		return err
	}
	for _, name := range config.GetDecryptedSecretNames() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runSecretsDelete(_ *cobra.Command, args []string) error {
	if !config.SecretsFileExists(projectDir) {
		return printer.Error("No secrets file", fmt.Sprintf("Nothing to delete in %s", projectDir), nil)
	}
	password, err := sessionPassword()
	if err != nil {
		return err
	}
	config.DeleteSecret(args[0])
	if err := config.SaveSecretsToFile(projectDir, password); err != nil {
		return printer.Error("Failed to save secrets", err.Error(), nil)
	}
	printer.Success("Deleted %s", args[0])
	return nil
}
