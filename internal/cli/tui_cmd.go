package cli

import (
	"errors"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/feridsherif/crms-frontend/internal/consoleclient"
	"github.com/feridsherif/crms-frontend/internal/tui"
)

type tuiOptions struct {
	BaseURL  string
	Username string
	Password string
	PageSize int
	Timeout  time.Duration
}

func newTUICmd() *cobra.Command {
	var opts tuiOptions

	cmd := &cobra.Command{
		Use:   "tui --url <gateway api url> --username <name>",
		Short: "Open the terminal admin console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.Username) == "" {
				return errors.New("--username is required")
			}
			if opts.Password == "" {
				opts.Password = os.Getenv("CRMS_PASSWORD")
			}
			if opts.Password == "" {
				return errors.New("--password or CRMS_PASSWORD is required")
			}

			client, err := consoleclient.New(opts.BaseURL, opts.Timeout, "X-Request-ID")
			if err != nil {
				return err
			}
			if _, err := client.Login(cmd.Context(), opts.Username, opts.Password); err != nil {
				return err
			}
			defer func() { _ = client.Logout(cmd.Context()) }()

			p := tea.NewProgram(tui.NewModel(cmd.Context(), client, opts.PageSize), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&opts.BaseURL, "url", "http://localhost:8080/api", "gateway API base url")
	cmd.Flags().StringVar(&opts.Username, "username", "", "console username")
	cmd.Flags().StringVar(&opts.Password, "password", "", "console password (defaults to $CRMS_PASSWORD)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 10, "rows per page")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "request timeout")
	return cmd
}
