package cmd

import (
	"fmt"

	"citynav/internal/auth"
	"citynav/internal/db"
	"citynav/internal/store"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in or continue as a guest",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context(), &config)
		if err != nil {
			return err
		}
		defer svc.Close()

		outcome, err := runLogin(svc.session, svc.identity)
		if err != nil {
			return err
		}
		switch outcome {
		case loginSignedIn:
			cmd.Println("Signed in. Run citynav to open the map.")
		case loginGuest:
			cmd.Println("Guest mode on. Run citynav to open the map.")
		default:
			cmd.Println("Login canceled.")
		}
		return nil
	},
}

var guestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Browse without an account on the next start",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := auth.NewLocalStore(config.ConfigDir)
		if err != nil {
			return err
		}
		if err := session.SetGuestMode(true); err != nil {
			return fmt.Errorf("failed to enable guest mode: %w", err)
		}
		cmd.Println("Guest mode on.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and leave guest mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context(), &config)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := auth.SignOut(cmd.Context(), svc.provider, svc.session, svc.logger); err != nil {
			cmd.PrintErrf("Warning: %v\n", err)
		}
		cmd.Println("Signed out.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the demo locations into the SQLite store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Store != StoreSQLite {
			return fmt.Errorf("seed only writes to the %s store", StoreSQLite)
		}
		database, err := db.Open(config.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := db.Seed(cmd.Context(), database, store.DemoLocations())
		if err != nil {
			return err
		}
		cmd.Printf("Seeded %d demo locations into %s\n", n, config.DBPath)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("citynav %s\n", version)
	},
}
