package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/dom/anivers/internal/client"
	"github.com/dom/anivers/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const commandTimeout = 30 * time.Second

// credentialFlags registers --email and --password with environment fallbacks.
func credentialFlags(fs *flag.FlagSet) *client.Credentials {
	creds := &client.Credentials{}
	fs.StringVar(&creds.Email, "email", os.Getenv("ANIVERS_EMAIL"), "Account email")
	fs.StringVar(&creds.Password, "password", os.Getenv("ANIVERS_PASSWORD"), "Account password")
	return creds
}

// login returns a client holding a fresh session.
func login(ctx context.Context, apiURL string, creds *client.Credentials) (*client.Client, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, errors.New("--email and --password (or ANIVERS_EMAIL/ANIVERS_PASSWORD) are required")
	}
	c, err := client.New(apiURL)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, *creds); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func registerCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	creds := credentialFlags(fs)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := client.New(apiURL)
	if err != nil {
		return err
	}
	session, err := c.Register(ctx, *creds)
	if err != nil {
		return describe(err)
	}
	fmt.Printf("Registered %s (id: %s)\n", session.User.Email, session.User.ID)
	return nil
}

func listCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	creds := credentialFlags(fs)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := login(ctx, apiURL, creds)
	if err != nil {
		return describe(err)
	}
	items, err := c.List(ctx)
	if err != nil {
		return describe(err)
	}
	printItems(items)
	return nil
}

func addCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	creds := credentialFlags(fs)
	id := fs.String("id", "", "External anime id (required)")
	status := fs.String("status", string(domain.StatusPlanned), "watching, planned, completed or dropped")
	title := fs.String("title", "", "Title to display")
	episodes := fs.Int("episodes", 0, "Total episode count")
	fs.Parse(args)

	if *id == "" {
		return errors.New("--id is required")
	}

	entry := client.ListEntry{ExternalID: *id, Status: *status}
	if *title != "" {
		entry.Title = title
	}
	if *episodes > 0 {
		entry.EpisodesTotal = episodes
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := login(ctx, apiURL, creds)
	if err != nil {
		return describe(err)
	}
	items, err := c.Upsert(ctx, entry)
	if err != nil {
		return describe(err)
	}
	printItems(items)
	return nil
}

func removeCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	creds := credentialFlags(fs)
	id := fs.String("id", "", "External anime id (required)")
	fs.Parse(args)

	if *id == "" {
		return errors.New("--id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := login(ctx, apiURL, creds)
	if err != nil {
		return describe(err)
	}
	items, err := c.Remove(ctx, *id)
	if err != nil {
		return describe(err)
	}
	printItems(items)
	return nil
}

func statsCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	creds := credentialFlags(fs)
	user := fs.String("user", "", "User id (default: yourself)")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		c      *client.Client
		userID uuid.UUID
		err    error
	)
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			return fmt.Errorf("--user: %w", err)
		}
		if c, err = client.New(apiURL); err != nil {
			return err
		}
	} else if c, err = login(ctx, apiURL, creds); err != nil {
		return describe(err)
	}

	stats, err := c.Stats(ctx, userID)
	if err != nil {
		return describe(err)
	}
	printStats(stats)
	return nil
}

func searchCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := fs.String("q", "", "Search text")
	limit := fs.Int("limit", 10, "Maximum results")
	page := fs.Int("page", 1, "Result page")
	fs.Parse(args)

	query := url.Values{}
	if *q != "" {
		query.Set("q", *q)
	}
	query.Set("limit", strconv.Itoa(*limit))
	query.Set("page", strconv.Itoa(*page))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := client.New(apiURL)
	if err != nil {
		return err
	}
	raw, err := c.SearchAnime(ctx, query)
	if err != nil {
		return describe(err)
	}

	var result struct {
		Data []struct {
			MalID    int     `json:"mal_id"`
			Title    string  `json:"title"`
			Episodes *int    `json:"episodes"`
			Score    float64 `json:"score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("unexpected catalog response: %w", err)
	}
	if len(result.Data) == 0 {
		fmt.Println("No results")
		return nil
	}
	for _, a := range result.Data {
		episodes := "?"
		if a.Episodes != nil {
			episodes = strconv.Itoa(*a.Episodes)
		}
		fmt.Printf("  %-8d %-50s eps: %-5s score: %.2f\n", a.MalID, a.Title, episodes, a.Score)
	}
	return nil
}

func playerCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	shikimori := fs.String("shikimori", "", "Shikimori id")
	mal := fs.String("mal", "", "MyAnimeList id, resolved to a shikimori id")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := client.New(apiURL)
	if err != nil {
		return err
	}

	var player *client.Player
	switch {
	case *shikimori != "":
		player, err = c.Player(ctx, *shikimori)
	case *mal != "":
		player, err = c.PlayerByMAL(ctx, *mal)
	default:
		return errors.New("--shikimori or --mal is required")
	}
	if err != nil {
		return describe(err)
	}

	if player.Title != nil {
		fmt.Printf("Title:    %s\n", *player.Title)
	}
	fmt.Printf("Episodes: %d\n", player.EpisodesTotal)
	fmt.Printf("Player:   %s\n", player.PlayerLink)
	return nil
}

// demoCmd walks through a whole session against a running server.
func demoCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := client.New(apiURL)
	if err != nil {
		return err
	}

	creds := client.Credentials{
		Email:    fmt.Sprintf("demo-%s@example.com", uuid.NewString()[:8]),
		Password: "demo-pass",
	}
	fmt.Print("Registering demo user... ")
	session, err := c.Register(ctx, creds)
	if err != nil {
		fmt.Println("FAILED")
		return describe(err)
	}
	fmt.Printf("OK (%s)\n", session.User.Email)

	titles := []client.ListEntry{
		{ExternalID: "21", Status: string(domain.StatusWatching)},
		{ExternalID: "5114", Status: string(domain.StatusCompleted)},
		{ExternalID: "52991", Status: string(domain.StatusPlanned)},
		{ExternalID: "21", Status: string(domain.StatusCompleted)},
	}
	for _, entry := range titles {
		fmt.Printf("Tracking %s as %s... ", entry.ExternalID, entry.Status)
		if _, err := c.Upsert(ctx, entry); err != nil {
			fmt.Println("FAILED")
			return describe(err)
		}
		fmt.Println("OK")
	}

	// Force the silent refresh path once.
	c.SetAccessToken("expired")

	items, err := c.List(ctx)
	if err != nil {
		return describe(err)
	}
	fmt.Println()
	printItems(items)

	stats, err := c.Stats(ctx, uuid.Nil)
	if err != nil {
		return describe(err)
	}
	fmt.Println()
	printStats(stats)

	return c.Logout(ctx)
}

func printItems(items []domain.TrackedItem) {
	if len(items) == 0 {
		fmt.Println("Your list is empty")
		return
	}
	for _, item := range items {
		fmt.Printf("  %-10s %-10s %s\n", item.ExternalID, item.Status, item.Title)
	}
}

func printStats(s domain.ListStats) {
	fmt.Printf("Total:     %d\n", s.Total)
	fmt.Printf("Watching:  %d\n", s.Watching)
	fmt.Printf("Planned:   %d\n", s.Planned)
	fmt.Printf("Completed: %d\n", s.Completed)
	fmt.Printf("Dropped:   %d\n", s.Dropped)
}

// describe turns API validation errors into something readable.
func describe(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	msg := apiErr.Message
	for field, problem := range apiErr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", field, problem)
	}
	return errors.New(msg)
}
