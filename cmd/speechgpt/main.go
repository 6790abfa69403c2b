// Command speechgpt is the terminal front end: type or speak a prompt, watch
// the conversation update live.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"speechgpt/internal/audio"
	"speechgpt/internal/capture"
	"speechgpt/internal/client"
	"speechgpt/internal/input"
	"speechgpt/internal/model/chat"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// terminalNotifier renders component notifications inline.
type terminalNotifier struct{}

func (terminalNotifier) Info(message string)    { fmt.Println(infoStyle.Render(message)) }
func (terminalNotifier) Success(message string) { fmt.Println(successStyle.Render(message)) }
func (terminalNotifier) Error(message string)   { fmt.Println(errorStyle.Render(message)) }

func main() {
	var (
		serverURL  string
		email      string
		name       string
		avatar     string
		chatID     string
		modelName  string
		sampleRate int
	)

	root := &cobra.Command{
		Use:   "speechgpt",
		Short: "Chat with SpeechGPT from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := chat.Session{Email: email, Name: name, Image: avatar}
			return run(cmd.Context(), serverURL, session, chatID, modelName, sampleRate)
		},
	}

	_ = godotenv.Load()

	root.Flags().StringVar(&serverURL, "server", envOrDefault("SERVER_URL", "http://localhost:8080"), "SpeechGPT server base URL")
	root.Flags().StringVar(&email, "email", os.Getenv("SESSION_EMAIL"), "signed-in user email (required for sending)")
	root.Flags().StringVar(&name, "name", os.Getenv("SESSION_NAME"), "signed-in user display name")
	root.Flags().StringVar(&avatar, "avatar", os.Getenv("SESSION_IMAGE"), "signed-in user avatar URL")
	root.Flags().StringVar(&chatID, "chat", "", "existing chat id (a new chat is created when empty)")
	root.Flags().StringVar(&modelName, "model", "", "completion model (default "+input.DefaultModel+")")
	root.Flags().IntVar(&sampleRate, "sample-rate", audio.DefaultSampleRate, "microphone sample rate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, serverURL string, session chat.Session, chatID, modelName string, sampleRate int) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	api := client.New(serverURL)
	notifier := terminalNotifier{}

	if !session.Valid() {
		notifier.Error("No session: input is disabled. Pass --email to sign in.")
	}

	if chatID == "" && session.Valid() {
		created, err := api.CreateChat(ctx, session)
		if err != nil {
			return fmt.Errorf("creating chat: %w", err)
		}
		chatID = created.ID
		notifier.Info("Started chat " + chatID)
	}

	mic, err := capture.NewMicrophone(sampleRate, logger)
	if err != nil {
		return fmt.Errorf("initializing microphone: %w", err)
	}

	models := &input.ModelState{}
	if modelName != "" {
		models.Set(modelName)
	}

	component := input.New(input.Options{
		API:      api,
		Mic:      mic,
		Notifier: notifier,
		Models:   models,
		Session:  session,
		ChatID:   chatID,
		Logger:   logger,
	})

	if chatID != "" {
		go renderLiveFeed(ctx, serverURL, session.Email, chatID, notifier)
	}

	fmt.Println(infoStyle.Render("Type your message. /mic toggles recording, /model <name> switches models, /send submits the draft, /quit exits."))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "/quit":
			component.Wait()
			return nil
		case line == "/mic":
			component.ToggleRecording(ctx)
			if component.Recording() {
				notifier.Info("Recording... (stops automatically after 5 seconds)")
			}
		case strings.HasPrefix(line, "/model "):
			component.Models().Set(strings.TrimSpace(strings.TrimPrefix(line, "/model ")))
			notifier.Info("Model set to " + component.Models().Get())
		case line == "/send":
			component.Submit(ctx)
		default:
			component.SetDraft(line)
			component.Submit(ctx)
		}
	}

	component.Wait()
	return scanner.Err()
}

// renderLiveFeed subscribes to the chat's websocket feed and renders every
// message as it lands, existing history included.
func renderLiveFeed(ctx context.Context, serverURL, email, chatID string, notifier terminalNotifier) {
	wsURL, err := feedURL(serverURL, email, chatID)
	if err != nil {
		notifier.Error("Live updates unavailable: " + err.Error())
		return
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		notifier.Error("Live updates unavailable: " + err.Error())
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg chat.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		style := userStyle
		if msg.User.ID == chat.AssistantUser.ID {
			style = assistantStyle
		}
		fmt.Printf("%s %s\n", style.Render(msg.User.Name+":"), msg.Text)
	}
}

func feedURL(serverURL, email, chatID string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/api/users/" + url.PathEscape(email) + "/chats/" + url.PathEscape(chatID) + "/live"
	return parsed.String(), nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
