package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var loginEmail *string
var loginPassword *string
var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "chef",
	Short: "chef crawls the StoryWeaver catalog into an upload-ready channel tree.",
}

func init() {
	loginEmail = rootCmd.PersistentFlags().String("login_email", "", "Login email for the StoryWeaver website.")
	loginPassword = rootCmd.PersistentFlags().String("login_password", "", "Login password for the StoryWeaver website.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and request dumps.")
	rootCmd.MarkPersistentFlagRequired("login_email")
	rootCmd.MarkPersistentFlagRequired("login_password")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
