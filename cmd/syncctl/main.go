package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryeetea/SyncSpaceScheduling/client"
	"github.com/aryeetea/SyncSpaceScheduling/models"
	"github.com/aryeetea/SyncSpaceScheduling/services"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// sessionFile carries the adopted group identity between invocations.
type sessionFile struct {
	Server     string       `json:"server"`
	Token      string       `json:"token"`
	Group      models.Group `json:"group"`
	MemberID   string       `json:"memberId"`
	MemberName string       `json:"memberName"`
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "syncctl",
		Usage: "Mark weekly availability and find the best times for your group.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:4000", EnvVars: []string{"SYNC_SERVER"}, Usage: "Base URL of the group server."},
			&cli.StringFlag{Name: "token", EnvVars: []string{"SYNC_ACCESS_TOKEN"}, Usage: "Shared bearer token."},
		},
		Commands: []*cli.Command{
			createCommand(),
			joinCommand(),
			showCommand(),
			setCommand(),
			resetCommand(),
			copyLastWeekCommand(),
			watchCommand(),
			muteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(base, "syncspace"), nil
}

func saveSession(sess sessionFile) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "session.json"), raw, 0o600)
}

func loadSession() (sessionFile, error) {
	var sess sessionFile
	dir, err := configDir()
	if err != nil {
		return sess, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, "session.json"))
	if err != nil {
		return sess, fmt.Errorf("no active session, run create or join first: %w", err)
	}
	if err := json.Unmarshal(raw, &sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// resumedSession rebuilds a Session from the persisted identity and pulls
// a fresh snapshot.
func resumedSession(ctx context.Context) (*client.Session, sessionFile, error) {
	sess, err := loadSession()
	if err != nil {
		return nil, sess, err
	}

	dir, err := configDir()
	if err != nil {
		return nil, sess, err
	}

	api := client.NewAPI(sess.Server, sess.Token)
	session := client.NewSession(slog.Default(), api, client.NewTemplateStore(dir), 0)
	session.Resume(sess.Group, sess.MemberID, sess.MemberName)
	if err := session.Refresh(ctx); err != nil {
		return nil, sess, err
	}
	return session, sess, nil
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new group and join it as the first member.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "Your display name."},
		},
		Action: func(c *cli.Context) error {
			dir, err := configDir()
			if err != nil {
				return err
			}

			api := client.NewAPI(c.String("server"), c.String("token"))
			session := client.NewSession(slog.Default(), api, client.NewTemplateStore(dir), 0)
			if err := session.Create(c.Context, c.String("name")); err != nil {
				return err
			}

			group, _ := session.Group()
			if err := saveSession(sessionFile{
				Server:     c.String("server"),
				Token:      c.String("token"),
				Group:      group,
				MemberID:   session.MemberID(),
				MemberName: c.String("name"),
			}); err != nil {
				return err
			}

			fmt.Printf("Created %q — share code %s with your group\n", group.Name, group.Code)
			return nil
		},
	}
}

func joinCommand() *cli.Command {
	return &cli.Command{
		Name:      "join",
		Usage:     "Join an existing group by code.",
		ArgsUsage: "CODE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "Your display name."},
		},
		Action: func(c *cli.Context) error {
			code := strings.TrimSpace(c.Args().First())
			if code == "" {
				return fmt.Errorf("group code argument is required")
			}

			dir, err := configDir()
			if err != nil {
				return err
			}

			api := client.NewAPI(c.String("server"), c.String("token"))
			session := client.NewSession(slog.Default(), api, client.NewTemplateStore(dir), 0)
			if err := session.Join(c.Context, code, c.String("name")); err != nil {
				return err
			}

			group, _ := session.Group()
			if err := saveSession(sessionFile{
				Server:     c.String("server"),
				Token:      c.String("token"),
				Group:      group,
				MemberID:   session.MemberID(),
				MemberName: c.String("name"),
			}); err != nil {
				return err
			}

			fmt.Printf("Joined %q as %s\n", group.Name, c.String("name"))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show members and the current best times to meet.",
		Action: func(c *cli.Context) error {
			session, sess, err := resumedSession(c.Context)
			if err != nil {
				return err
			}

			members := session.Members()
			fmt.Printf("%s (%s) — %d member(s)\n", sess.Group.Name, sess.Group.Code, len(members))
			for _, m := range members {
				marker := " "
				if m.ID == sess.MemberID {
					marker = "*"
				}
				fmt.Printf("  %s %s\n", marker, m.Name)
			}

			printBestTimes(members)
			return nil
		},
	}
}

func printBestTimes(members []models.Member) {
	scores := services.SlotScores(members)
	best := services.BestSlots(scores)

	if day, ok := services.BestDay(scores); ok {
		fmt.Printf("\n%s looks promising: %d slot(s) with good availability\n", day.Day, day.QualifyingSlots)
	}

	if len(best) == 0 {
		fmt.Println("\nNo strong matches yet — mark your availability to find common times.")
		return
	}

	fmt.Println("\nTop meeting times:")
	for i, slot := range best {
		fmt.Printf("  %d. %s, %s — %d of %d available (%.0f%%)\n",
			i+1, slot.Day, services.FormatHour(slot.Hour),
			slot.AvailableCount, slot.TotalMembers, slot.Score*100)
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Cycle the status of one cell (unset -> available -> remote -> busy -> unset).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Required: true, Usage: "Weekday name, e.g. Monday."},
			&cli.IntFlag{Name: "hour", Required: true, Usage: "Hour of day, 8..23."},
		},
		Action: func(c *cli.Context) error {
			dayIndex := -1
			for i, day := range models.Days {
				if strings.EqualFold(day, c.String("day")) {
					dayIndex = i
					break
				}
			}
			if dayIndex < 0 {
				return fmt.Errorf("unknown day %q", c.String("day"))
			}

			session, _, err := resumedSession(c.Context)
			if err != nil {
				return err
			}

			status, err := session.SetStatus(dayIndex, c.Int("hour"))
			if err != nil {
				return err
			}
			session.Flush()

			label := "unset"
			if status != nil {
				label = string(*status)
			}
			feedbackBell()
			fmt.Printf("%s %s is now %s\n", models.Days[dayIndex], services.FormatHour(c.Int("hour")), label)
			return nil
		},
	}
}

// feedbackBell rings the terminal bell on edits unless muted.
func feedbackBell() {
	dir, err := configDir()
	if err != nil {
		return
	}
	prefs, err := client.LoadPrefs(dir)
	if err != nil || prefs.Muted {
		return
	}
	fmt.Print("\a")
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Clear your whole week back to unset.",
		Action: func(c *cli.Context) error {
			session, _, err := resumedSession(c.Context)
			if err != nil {
				return err
			}
			if err := session.Reset(); err != nil {
				return err
			}
			session.Flush()
			fmt.Println("Week cleared")
			return nil
		},
	}
}

func copyLastWeekCommand() *cli.Command {
	return &cli.Command{
		Name:  "copy-last-week",
		Usage: "Clone your most recent saved week into the current one.",
		Action: func(c *cli.Context) error {
			session, _, err := resumedSession(c.Context)
			if err != nil {
				return err
			}
			if err := session.CopyLastWeek(); err != nil {
				return err
			}
			session.Flush()
			fmt.Println("Copied availability from last week")
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll the group and reprint best times as they change.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "interval", Value: 5, Usage: "Refresh period in seconds."},
		},
		Action: func(c *cli.Context) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			dir, err := configDir()
			if err != nil {
				return err
			}

			api := client.NewAPI(sess.Server, sess.Token)
			interval := time.Duration(c.Int("interval")) * time.Second
			session := client.NewSession(slog.Default(), api, client.NewTemplateStore(dir), interval)
			session.Resume(sess.Group, sess.MemberID, sess.MemberName)
			defer session.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			if err := session.Refresh(ctx); err != nil {
				slog.Error("initial refresh failed, will retry", "error", err)
			}
			printBestTimes(session.Members())

			go session.Run(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			last := ""
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					rendered := renderBest(session.Members())
					if rendered != last {
						last = rendered
						fmt.Printf("\n--- %s ---\n", time.Now().Format("15:04:05"))
						printBestTimes(session.Members())
					}
				}
			}
		},
	}
}

// renderBest is a cheap change detector for watch output.
func renderBest(members []models.Member) string {
	best := services.BestSlots(services.SlotScores(members))
	var sb strings.Builder
	for _, slot := range best {
		fmt.Fprintf(&sb, "%s/%d/%.2f;", slot.Day, slot.Hour, slot.Score)
	}
	return sb.String()
}

func muteCommand() *cli.Command {
	return &cli.Command{
		Name:  "mute",
		Usage: "Toggle edit feedback on or off.",
		Action: func(c *cli.Context) error {
			dir, err := configDir()
			if err != nil {
				return err
			}
			prefs, err := client.LoadPrefs(dir)
			if err != nil {
				return err
			}
			muted, err := prefs.ToggleMute()
			if err != nil {
				return err
			}
			if muted {
				fmt.Println("Feedback muted")
			} else {
				fmt.Println("Feedback on")
			}
			return nil
		},
	}
}
