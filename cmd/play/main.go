// Command play is a terminal client for the tile classification game. It
// drives the same session state machine and backend SDK the graphical
// client uses, which makes it handy for exercising a running server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"terratiles/internal/client"
	"terratiles/internal/config"
	"terratiles/internal/game"
)

func main() {
	cfg := config.Load()

	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:" + cfg.ServerPort
	}
	stateDir := os.Getenv("STATE_DIR")
	if stateDir == "" {
		stateDir = ".terratiles"
	}
	username := os.Getenv("PLAYER_NAME")
	if username == "" {
		username = "explorer"
	}

	api := client.NewAPI(serverURL)
	identity := client.NewIdentityProvider(api, stateDir, cfg.SessionWindow)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userID, err := identity.GetOrCreate(ctx, username)
	if err != nil {
		log.Fatalf("failed to establish identity: %v", err)
	}
	currentUser := func() string { return userID }

	store := client.NewProgressStore(api, client.NewFileCache(stateDir), currentUser)
	telemetry := client.NewTelemetryRecorder(api, currentUser)
	recorder := client.NewStatsRecorder(api, currentUser)

	identity.StartActivityPinger(ctx, cfg.PingInterval)

	session := game.NewSession(ctx, store, telemetry, recorder)

	fmt.Printf("Playing as %s (%s)\n", username, userID)
	printHelp()
	runREPL(ctx, session, telemetry)
}

func runREPL(ctx context.Context, session *game.Session, telemetry *client.TelemetryRecorder) {
	scanner := bufio.NewScanner(os.Stdin)
	started := time.Now()

	for {
		fmt.Printf("[%s]> ", session.Screen())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printHelp()

		case "start":
			if reportErr(session.Start()) {
				started = time.Now()
				printLevel(session)
			}

		case "levels":
			reportErr(session.OpenLevelSelect())
			printLevels(session)

		case "play":
			if len(parts) < 2 {
				fmt.Println("usage: play <level>")
				continue
			}
			id, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("level must be a number")
				continue
			}
			if reportErr(session.SelectLevel(id)) {
				started = time.Now()
				printLevel(session)
			}

		case "label":
			if len(parts) < 3 {
				fmt.Println("usage: label <tile> <landcover>")
				continue
			}
			correct, err := session.AssignLabel(parts[1], game.LandCover(parts[2]))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if correct {
				fmt.Println("Correct!")
			} else {
				fmt.Println("Not quite.")
			}
			fmt.Printf("%d tiles remaining\n", session.Remaining())

		case "done":
			minutes := int(time.Since(started).Minutes())
			if minutes < 1 {
				minutes = 1
			}
			result, err := session.CompleteLevel(ctx, minutes)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("Level %d complete: %d stars, +%d points\n", result.Level, result.Stars, result.ScoreGained)
			for _, badge := range result.NewBadges {
				fmt.Printf("New badge: %s %s\n", badge.Icon, badge.Name)
			}
			if !session.Saved() {
				fmt.Println("(progress saved locally, server unreachable)")
			}

		case "next":
			if reportErr(session.NextLevel()) {
				started = time.Now()
				printLevel(session)
			}

		case "replay":
			if reportErr(session.Replay()) {
				started = time.Now()
				printLevel(session)
			}

		case "progress":
			printProgress(session)

		case "reset":
			session.ResetProgress(ctx)
			fmt.Println("Progress reset.")

		case "home":
			session.GoHome()

		case "sync":
			telemetry.RetryFlush()
			fmt.Printf("%d events pending\n", telemetry.Pending())

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", parts[0])
		}
	}
}

func printHelp() {
	fmt.Println("Commands: start, levels, play <n>, label <tile> <landcover>, done, next, replay, progress, reset, home, sync, exit")
}

func printLevels(session *game.Session) {
	progress := session.Progress()
	for _, level := range game.Levels() {
		marker := " "
		if level.ID > progress.UnlockedLevels {
			marker = "x"
		}
		stars := progress.LevelStars[level.ID]
		fmt.Printf("%s %d. %s (%dx%d) %s\n", marker, level.ID, level.Title, level.GridSize, level.GridSize, strings.Repeat("*", stars))
	}
}

func printLevel(session *game.Session) {
	level := session.CurrentLevel()
	if level == nil {
		return
	}
	fmt.Printf("Level %d: %s\n", level.ID, level.Title)
	fmt.Print("Labels:")
	for _, label := range level.AvailableLabels {
		fmt.Printf(" %s", label)
	}
	fmt.Println()
	for _, tile := range level.Tiles {
		fmt.Printf("  %s  %s\n", tile.ID, tile.ImageName)
	}
}

func printProgress(session *game.Session) {
	progress := session.Progress()
	fmt.Printf("Unlocked levels: %d/%d\n", progress.UnlockedLevels, game.LevelCount())
	fmt.Printf("Total stars: %d\n", progress.TotalStars)
	for _, badge := range progress.Badges {
		if badge.Earned {
			fmt.Printf("  %s %s\n", badge.Icon, badge.Name)
		}
	}
}

func reportErr(err error) bool {
	if err != nil {
		fmt.Println("error:", err)
		return false
	}
	return true
}
