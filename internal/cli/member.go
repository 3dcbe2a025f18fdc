package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rewear-collective/rewear/internal/auth"
	"github.com/rewear-collective/rewear/internal/daemon"
	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/sqlite"
)

// ─── Member Management ──────────────────────────────────────────────────────
// Account provisioning happens out of band: an operator creates members
// and mints bearer tokens for them. The API itself never issues tokens.

func init() {
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberTokenCmd)

	memberAddCmd.Flags().String("name", "", "Member display name")
	memberAddCmd.Flags().String("email", "", "Member email")
	memberAddCmd.Flags().String("city", "", "Member city (used for courier quotes)")
	memberAddCmd.Flags().String("state", "", "Member state")
	memberAddCmd.Flags().String("zip", "", "Member zip code")
	memberAddCmd.Flags().Bool("admin", false, "Grant staff privileges")

	memberTokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default from config)")
}

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage exchange members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a member account",
	RunE:  runMemberAdd,
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	if name == "" || email == "" {
		return fmt.Errorf("--name and --email are required")
	}
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	zip, _ := cmd.Flags().GetString("zip")
	admin, _ := cmd.Flags().GetBool("admin")

	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	m := &domain.Member{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		IsAdmin:   admin,
		Address:   domain.Address{City: city, State: state, ZipCode: zip, Country: "India"},
		CreatedAt: time.Now(),
	}
	if err := db.CreateMember(m); err != nil {
		return err
	}
	fmt.Println(m.ID)
	return nil
}

var memberTokenCmd = &cobra.Command{
	Use:   "token MEMBER_ID",
	Short: "Mint a bearer token for a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberToken,
}

func runMemberToken(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if key := os.Getenv("REWEAR_SIGNING_KEY"); key != "" {
		cfg.Auth.SigningKey = key
	}
	if cfg.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is not configured")
	}

	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.GetMember(args[0])
	if err != nil {
		return err
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTLDuration()
	}
	token, err := auth.New(cfg.Auth.SigningKey, cfg.Auth.Issuer).Issue(m.ID, m.IsAdmin, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
