// chat is a line-oriented terminal client. It resolves the session user,
// connects the push channel, and drives the state engine from stdin:
//
//	/chats            list conversations, most recent first
//	/users            list everyone on the user service
//	/open <n|chatId>  select a conversation (by list index or id)
//	/start <userId>   start a conversation with a user
//	/typing <text>    update the compose draft (emits typing signals)
//	/quit             leave and exit
//	anything else     send it as a message to the selected chat
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/api"
	"github.com/mskgit8695/chatapp-frontend/internal/config"
	"github.com/mskgit8695/chatapp-frontend/internal/push"
	"github.com/mskgit8695/chatapp-frontend/internal/state"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using defaults")
	}
	cfg := config.Load()
	if cfg.Token == "" {
		logger.Fatal("CHAT_TOKEN is not set")
	}

	client := api.New(cfg.UserServiceURL, cfg.ChatServiceURL,
		func() (string, error) { return cfg.Token, nil }, logger)

	ctx := context.Background()
	me, err := client.Me(ctx)
	if err != nil {
		logger.Fatal("failed to resolve session user", zap.Error(err))
	}

	channel, err := push.Dial(cfg.SocketURL, cfg.Token, logger)
	if err != nil {
		logger.Fatal("failed to connect push channel", zap.Error(err))
	}

	engine := state.New(me, client, channel,
		state.NotifierFunc(func(text string) { fmt.Println("! " + text) }),
		logger)

	go func() {
		if err := channel.Run(engine); err != nil {
			logger.Error("push channel closed", zap.Error(err))
		}
	}()

	if err := engine.RefreshChats(ctx); err != nil {
		logger.Warn("initial chat list fetch failed", zap.Error(err))
	}

	fmt.Printf("connected as %s <%s>\n", me.Name, me.Email)
	printChats(engine)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		runCommand(ctx, engine, client, line)
	}

	engine.Close()
	channel.Close()
}

func runCommand(ctx context.Context, engine *state.Engine, client *api.Client, line string) {
	switch {
	case line == "/chats":
		printChats(engine)

	case line == "/users":
		users, err := client.Users(ctx)
		if err != nil {
			fmt.Println("! Failed to load users!")
			return
		}
		for _, u := range users {
			fmt.Printf("  %s  %s <%s>\n", u.ID, u.Name, u.Email)
		}

	case strings.HasPrefix(line, "/open "):
		arg := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
		chatID := arg
		if n, err := strconv.Atoi(arg); err == nil {
			entries := engine.Chats()
			if n < 1 || n > len(entries) {
				fmt.Println("! no such conversation")
				return
			}
			chatID = entries[n-1].Chat.ID
		}
		if err := engine.SelectChat(ctx, chatID); err != nil {
			return
		}
		printTimeline(engine)

	case strings.HasPrefix(line, "/start "):
		peer := strings.TrimSpace(strings.TrimPrefix(line, "/start "))
		if _, err := engine.StartChat(ctx, peer); err != nil {
			return
		}
		printTimeline(engine)

	case strings.HasPrefix(line, "/typing "):
		engine.ComposeDraft(strings.TrimPrefix(line, "/typing "))

	default:
		if err := engine.SendMessage(ctx, line, nil); err != nil {
			if err == state.ErrNoSelection {
				fmt.Println("! open a conversation first (/open)")
			}
			return
		}
		printTimeline(engine)
	}
}

func printChats(engine *state.Engine) {
	entries := engine.Chats()
	if len(entries) == 0 {
		fmt.Println("(no conversations yet, /start <userId> to begin)")
		return
	}
	for i, entry := range entries {
		marker := " "
		if entry.Chat.ID == engine.Selected() {
			marker = "*"
		}
		unseen := ""
		if entry.Chat.UnseenCount > 0 {
			unseen = fmt.Sprintf(" (%d unseen)", entry.Chat.UnseenCount)
		}
		fmt.Printf("%s %d. %s: %s%s\n", marker, i+1, entry.User.Name, entry.Chat.LatestMessage.Text, unseen)
	}
}

func printTimeline(engine *state.Engine) {
	me := engine.LocalUser()
	for _, msg := range engine.Messages() {
		who := "them"
		tick := ""
		if msg.Sender == me.ID {
			who = "me"
			if msg.Seen {
				tick = " ✓✓"
			}
		}
		fmt.Printf("  [%s] %s%s\n", who, msg.Preview(), tick)
	}
	if engine.PeerTyping() {
		fmt.Println("  ...typing")
	}
}
