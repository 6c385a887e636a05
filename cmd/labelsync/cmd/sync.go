package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/javi11/labelsync/internal/config"
	"github.com/javi11/labelsync/internal/httpclient"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger a label sync",
		Long:  `Ask the running server to sync Sonarr tags onto Plex labels, optionally limited by title and recency.`,
		RunE:  runSync,
	}

	syncCmd.Flags().String("title", "", "only sync series whose title contains this text")
	syncCmd.Flags().Int("days", 0, "only sync series added within this many days (0 disables)")
	syncCmd.Flags().String("server", "", "server base URL (default is http://localhost:<api.port>)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	days, _ := cmd.Flags().GetInt("days")
	server, _ := cmd.Flags().GetString("server")

	if days < 0 {
		return fmt.Errorf("invalid value for days: %d - it must be zero or a positive integer", days)
	}

	if server == "" {
		var err error
		if server, err = localAPIBase(configFile); err != nil {
			return err
		}
	}

	endpoint, err := syncURL(server, title, days)
	if err != nil {
		return err
	}

	slog.Info("Triggering label sync", "url", endpoint)

	// Syncing a whole library can take a while
	client := httpclient.New(httpclient.WithTimeout(0))

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Pretty print JSON response
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), prettyJSON.String())
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned error: %s", resp.Status)
	}

	return nil
}

// localAPIBase returns the API base of a server on this host. Only the api
// section is needed, so Plex and Sonarr credentials may be absent.
func localAPIBase(configFile string) (string, error) {
	cfg, err := config.ReadConfig(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return fmt.Sprintf("http://localhost:%d%s", cfg.API.Port, cfg.GetAPIPrefix()), nil
}

// syncURL builds the sync endpoint for an API base such as http://host:8000/api.
func syncURL(apiBase, title string, days int) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", apiBase, err)
	}
	u = u.JoinPath("sync")

	q := u.Query()
	if title != "" {
		q.Set("title", title)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
