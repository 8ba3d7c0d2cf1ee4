package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/sldl-jobs/internal/app"
	"github.com/yourusername/sldl-jobs/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "sldl-jobs",
		Short: "sldl-jobs CLI - track Soulseek downloads run by sldl",
		Long:  `A command-line interface for starting, watching and canceling sldl download jobs.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9870", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// call sends a JSON request and decodes the response into out, exiting on
// transport errors or when the status is not want
func call(method, path string, body interface{}, want int, out interface{}) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fail("%v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		fail("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("%v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			fail("%s", apiErr.Error)
		}
		fail("%s", strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fail("invalid response: %v", err)
		}
	}
}

var startCmd = &cobra.Command{
	Use:   "start [query]",
	Short: "Start a download job",
	Long: `Start a download job. The query is passed to sldl as-is: a search
string, a Spotify playlist URL, or "spotify-likes".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		title, _ := cmd.Flags().GetString("title")
		artist, _ := cmd.Flags().GetString("artist")
		album, _ := cmd.Flags().GetString("album")
		options, _ := cmd.Flags().GetStringToString("option")

		req := app.StartRequest{
			Query:   args[0],
			Title:   title,
			Artist:  artist,
			Album:   album,
			Options: options,
		}

		var job domain.Job
		call(http.MethodPost, "/api/v1/jobs", req, http.StatusCreated, &job)
		fmt.Printf("Job started!\n")
		fmt.Printf("ID: %s\n", job.ID)
		fmt.Printf("Status: %s\n", job.Status)
		if job.IsPlaylist {
			fmt.Println("Type: playlist")
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/jobs"
		if status != "" {
			path += "?status=" + url.QueryEscape(status)
		}

		var jobs []domain.Job
		call(http.MethodGet, path, nil, http.StatusOK, &jobs)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROGRESS\tTRACKS\tSTARTED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				truncate(j.Title, 40),
				j.Status,
				formatProgress(j.Progress),
				formatTracks(j),
				j.StartedAt.Format(time.Kitchen))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var stats domain.JobStats
		call(http.MethodGet, "/api/v1/jobs/stats", nil, http.StatusOK, &stats)

		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:       %d\n", stats.Total)
		fmt.Printf("  Queued:      %d\n", stats.Queued)
		fmt.Printf("  Searching:   %d\n", stats.Searching)
		fmt.Printf("  In progress: %d\n", stats.InProgress)
		fmt.Printf("  Completed:   %d\n", stats.Completed)
		fmt.Printf("  Failed:      %d\n", stats.Failed)
		fmt.Printf("  Canceled:    %d\n", stats.Canceled)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get job details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		showLogs, _ := cmd.Flags().GetBool("logs")

		var job domain.Job
		call(http.MethodGet, "/api/v1/jobs/"+url.PathEscape(args[0]), nil, http.StatusOK, &job)

		fmt.Printf("Job Details:\n")
		fmt.Printf("  ID:       %s\n", job.ID)
		fmt.Printf("  Title:    %s\n", job.Title)
		fmt.Printf("  Query:    %s\n", job.Query)
		fmt.Printf("  Status:   %s\n", job.Status)
		if job.FailureReason != "" {
			fmt.Printf("  Reason:   %s\n", job.FailureReason)
		}
		if job.Completion != "" {
			fmt.Printf("  Outcome:  %s\n", job.Completion)
		}
		fmt.Printf("  Progress: %s\n", formatProgress(job.Progress))
		if job.IsPlaylist {
			fmt.Printf("  Tracks:   %s\n", formatTracks(job))
		}
		if job.FilePath != nil {
			fmt.Printf("  File:     %s\n", *job.FilePath)
		}
		fmt.Printf("  Started:  %s\n", job.StartedAt.Format(time.RFC3339))

		if showLogs {
			fmt.Println("\nConsole:")
			for _, line := range job.Logs() {
				fmt.Println("  " + line)
			}
		}
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a job and stop its sldl process",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		call(http.MethodPost, "/api/v1/jobs/"+url.PathEscape(args[0])+"/cancel", nil, http.StatusOK, nil)
		fmt.Println("Job canceled")
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove completed, failed and canceled jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var result struct {
			Removed int `json:"removed"`
		}
		call(http.MethodDelete, "/api/v1/jobs", nil, http.StatusOK, &result)
		fmt.Printf("%d finished downloads cleared\n", result.Removed)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")

		var result struct {
			Total   int64                  `json:"total"`
			Entries []*domain.HistoryEntry `json:"entries"`
		}
		call(http.MethodGet, fmt.Sprintf("/api/v1/history?limit=%d", limit), nil, http.StatusOK, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tFINISHED")
		for _, e := range result.Entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				truncate(e.ID, 8),
				truncate(e.Title, 40),
				e.Status,
				e.FinishedAt.Format(time.RFC3339))
		}
		w.Flush()
		fmt.Printf("\n%d of %d archived jobs\n", len(result.Entries), result.Total)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View server logs (job, process, error)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		category := "job"
		if len(args) == 1 {
			category = args[0]
		}
		search, _ := cmd.Flags().GetString("search")
		date, _ := cmd.Flags().GetString("date")
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		query := url.Values{}
		query.Set("limit", fmt.Sprint(limit))
		if date != "" {
			query.Set("date", date)
		}
		path := "/api/v1/logs/" + url.PathEscape(category)
		if search != "" {
			path += "/search"
			query.Set("q", search)
		}

		var result struct {
			Entries []map[string]interface{} `json:"entries"`
		}
		call(http.MethodGet, path+"?"+query.Encode(), nil, http.StatusOK, &result)

		for _, entry := range result.Entries {
			if jsonOutput {
				data, _ := json.Marshal(entry)
				fmt.Println(string(data))
				continue
			}
			fmt.Printf("%v [%v] %v\n", entry["timestamp"], entry["level"], entry["message"])
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [id]",
	Short: "Stream live job events",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		raw, _ := cmd.Flags().GetBool("raw")

		wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/events"
		if len(args) == 1 {
			wsURL += "?job_id=" + url.QueryEscape(args[0])
		}

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			fail("%v", err)
		}
		defer conn.Close()

		for {
			var n domain.Notification
			if err := conn.ReadJSON(&n); err != nil {
				fail("%v", err)
			}
			printNotification(n, raw)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := os.ExpandEnv("$HOME/.sldl-jobs/config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			fail("%s already exists (use --force to overwrite)", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			fail("%v", err)
		}
		fmt.Printf("Configuration written to %s\n", path)
	},
}

func init() {
	startCmd.Flags().String("title", "", "Display title (defaults to the query)")
	startCmd.Flags().String("artist", "", "Artist metadata")
	startCmd.Flags().String("album", "", "Album metadata")
	startCmd.Flags().StringToStringP("option", "o", nil, "Extra sldl option as key=value (repeatable)")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	getCmd.Flags().BoolP("logs", "l", false, "Show the console log")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum entries")
	logsCmd.Flags().StringP("search", "q", "", "Only entries containing this text")
	logsCmd.Flags().StringP("date", "d", "", "Day to read (YYYY-MM-DD)")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum entries")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	watchCmd.Flags().Bool("raw", false, "Include raw sldl output lines")
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

func printNotification(n domain.Notification, raw bool) {
	ts := n.Timestamp.Format(time.TimeOnly)
	switch n.Name {
	case domain.NotifyStdout, domain.NotifyStderr:
		if raw {
			fmt.Printf("%s %s %s\n", ts, truncate(n.JobID, 8), n.Line)
		}
	case domain.NotifyTerminated:
		fmt.Printf("%s %s sldl exited (success=%t)\n", ts, truncate(n.JobID, 8), n.Success != nil && *n.Success)
	case domain.NotifyCleared:
		fmt.Printf("%s %s\n", ts, n.Message)
	default:
		if n.Job == nil {
			fmt.Printf("%s %s\n", ts, n.Name)
			return
		}
		fmt.Printf("%s %s %-20s %-11s %s %s\n", ts, truncate(n.JobID, 8), n.Name,
			n.Job.Status, formatProgress(n.Job.Progress), truncate(n.Job.Title, 40))
	}
}

func formatProgress(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%3.0f%%", *p*100)
}

func formatTracks(j domain.Job) string {
	if j.TotalTracks == nil {
		return "-"
	}
	done, failed := 0, 0
	if j.CompletedTracks != nil {
		done = *j.CompletedTracks
	}
	if j.FailedTracks != nil {
		failed = *j.FailedTracks
	}
	return fmt.Sprintf("%d/%d (%d failed)", done, *j.TotalTracks, failed)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
