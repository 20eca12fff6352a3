package cli

import (
	"errors"

	"github.com/dl-alexandre/gitdrive/internal/auth"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Service account key management",
	Long: `Keep service account keys in the OS keyring.

A stored key is used with GOOGLE_KEY=keyring:<name>, so the key never has to
sit in the environment or in a file on the build machine.`,
}

var authStoreKeyCmd = &cobra.Command{
	Use:   "store-key <name> <key-file>",
	Short: "Store a service account key in the keyring",
	Args:  cobra.ExactArgs(2),
	RunE:  runAuthStoreKey,
}

var authDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key <name>",
	Short: "Remove a stored service account key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDeleteKey,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that GOOGLE_KEY can obtain an access token",
	Args:  cobra.NoArgs,
	RunE:  runAuthCheck,
}

// keyStore and keyFs are replaced in tests
var (
	keyStore auth.KeyStore = auth.NewKeyringStorage(keyringService)
	keyFs                  = afero.NewOsFs()
)

func init() {
	authCmd.AddCommand(authStoreKeyCmd)
	authCmd.AddCommand(authDeleteKeyCmd)
	authCmd.AddCommand(authCheckCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStoreKey(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")
	name, keyFile := args[0], args[1]

	data, err := afero.ReadFile(keyFs, keyFile)
	if err != nil {
		return fail(out, "auth.store-key", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"key file could not be read").Build(), err))
	}

	// Parse before storing so a bad key fails now rather than at sync time
	if _, err := auth.NewServiceAccountAuthorizer(string(data), keyFs, nil).Authorize(cmd.Context()); err != nil {
		return fail(out, "auth.store-key", err)
	}

	if err := keyStore.Save(name, data); err != nil {
		return fail(out, "auth.store-key", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInternalError,
			"failed to store key").
			WithContext("storage", keyStore.Name()).
			Build(), err))
	}

	return out.WriteSuccess("auth.store-key", map[string]interface{}{
		"name":      name,
		"storage":   keyStore.Name(),
		"googleKey": auth.KeyringPrefix + name,
	})
}

func runAuthDeleteKey(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")
	name := args[0]

	if err := keyStore.Delete(name); err != nil {
		code := utils.ErrCodeInternalError
		if errors.Is(err, auth.ErrKeyNotFound) {
			code = utils.ErrCodeInvalidArgument
		}
		return fail(out, "auth.delete-key", utils.WrapAppError(utils.NewCLIError(code,
			"failed to delete key").
			WithContext("name", name).
			Build(), err))
	}

	return out.WriteSuccess("auth.delete-key", map[string]interface{}{
		"name":    name,
		"deleted": true,
	})
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")

	cfg, err := loadConfig(GetGlobalFlags())
	if err != nil {
		return fail(out, "auth.check", err)
	}

	ts, err := auth.NewServiceAccountAuthorizer(cfg.GoogleKey, keyFs, keyStore).Authorize(cmd.Context())
	if err != nil {
		return fail(out, "auth.check", err)
	}
	token, err := auth.FetchToken(ts)
	if err != nil {
		return fail(out, "auth.check", err)
	}

	return out.WriteSuccess("auth.check", map[string]interface{}{
		"valid":     token.Valid(),
		"expiresAt": token.Expiry,
	})
}
