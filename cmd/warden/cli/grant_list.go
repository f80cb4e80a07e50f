package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/secret"
	"github.com/spf13/cobra"
)

var grantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runGrantList,
}

func init() {
	grantCmd.AddCommand(grantListCmd)
}

// grantRow is the JSON shape of one stored credential. The secret itself
// is never printed.
type grantRow struct {
	Service   string    `json:"service"`
	User      string    `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func runGrantList(cmd *cobra.Command, args []string) error {
	store, err := secret.OpenDefault()
	if err != nil {
		return err
	}
	secrets, err := store.List()
	if err != nil {
		return err
	}

	rows := make([]grantRow, 0, len(secrets))
	for _, s := range secrets {
		rows = append(rows, grantRow{Service: string(s.Service), User: s.User, CreatedAt: s.CreatedAt})
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No credentials stored. Run 'warden grant <service>' to add one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SERVICE\tUSER\tSTORED")
	for _, r := range rows {
		user := r.User
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.Service, user, intcli.FormatTimeAgo(r.CreatedAt))
	}
	return w.Flush()
}
