package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/parley-chat/parley/pkg/auth"
	"github.com/parley-chat/parley/pkg/chat"
	"github.com/parley-chat/parley/pkg/config"
	"github.com/parley-chat/parley/pkg/feedback"
	"github.com/parley-chat/parley/pkg/logger"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// runApp wires the gate, controller and rating workflow together and runs
// the line-oriented REPL.
func runApp(cfg *config.Config) error {
	gate := auth.NewGateWithTimeout(cfg.Server.URL, cfg.Auth.DefaultRole, cfg.Server.Timeout)
	client := chat.NewStreamClientWithLimits(cfg.Server.URL, cfg.Server.IdleTimeout, cfg.Chat.MaxStreamBuffer)
	controller := chat.NewController(client, gate, cfg.Chat.Greeting)
	workflow := feedback.NewWorkflow(cfg.Server.URL, controller.Conversation(), gate.Session)

	gate.OnLogout(controller.Clear)
	controller.OnClear(workflow.Reset)
	controller.OnFragment(func(fragment string) {
		fmt.Print(answerStyle.Render(fragment))
	})
	workflow.OnNotice(func(n feedback.Notice) {
		style := noticeStyle
		if n.Kind == feedback.NoticeError {
			style = errorStyle
		}
		fmt.Println(style.Render(n.Text))
	})

	fmt.Println(answerStyle.Render(cfg.Chat.Greeting))
	fmt.Println(noticeStyle.Render("Commands: /login /register /logout /rate /feedback /clear /quit"))

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			controller.CancelActive()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, line, gate, controller, workflow); quit {
				return nil
			}
			continue
		}

		// When the thumbs-down collection state is open, free text is the
		// feedback, not a new prompt.
		if workflow.Collecting() {
			if err := workflow.SubmitFeedback(ctx, line); err != nil {
				logger.Debug("app: feedback not submitted: %v", err)
			}
			continue
		}

		sendPrompt(ctx, controller, line)
	}
}

func sendPrompt(ctx context.Context, controller *chat.Controller, prompt string) {
	err := controller.Send(ctx, prompt)
	switch {
	case errors.Is(err, chat.ErrAuthRequired):
		// The redirect-to-login signal for the excluded routing layer.
		fmt.Println(noticeStyle.Render("Please log in first: /login <username> <password>"))
	case errors.Is(err, chat.ErrBusy):
		fmt.Println(noticeStyle.Render("Still waiting on the previous reply."))
	case err != nil:
		fmt.Println(errorStyle.Render(err.Error()))
	default:
		fmt.Println()
	}
}

// runCommand handles one slash command. Returns true when the REPL should
// exit.
func runCommand(ctx context.Context, line string, gate *auth.Gate, controller *chat.Controller, workflow *feedback.Workflow) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		controller.CancelActive()
		return true

	case "/login":
		if len(fields) != 3 {
			fmt.Println(noticeStyle.Render("Usage: /login <username> <password>"))
			return false
		}
		session, err := gate.Login(ctx, fields[1], fields[2])
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return false
		}
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Logged in as %s.", session.UserID)))

	case "/register":
		if len(fields) < 3 {
			fmt.Println(noticeStyle.Render("Usage: /register <username> <password> [department] [major]"))
			return false
		}
		details := auth.RegistrationDetails{Username: fields[1], Password: fields[2]}
		if len(fields) > 3 {
			details.Department = fields[3]
		}
		if len(fields) > 4 {
			details.MajorName = fields[4]
		}
		session, err := gate.Register(ctx, details)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return false
		}
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Registered and logged in as %s.", session.UserID)))

	case "/logout":
		gate.Logout()
		fmt.Println(noticeStyle.Render("Logged out."))

	case "/clear":
		controller.Clear()
		fmt.Println(noticeStyle.Render("Conversation cleared."))

	case "/rate":
		if len(fields) != 2 || (fields[1] != "up" && fields[1] != "down") {
			fmt.Println(noticeStyle.Render("Usage: /rate up|down"))
			return false
		}
		msg, ok := controller.Conversation().LastRatable()
		if !ok {
			fmt.Println(noticeStyle.Render("Nothing to rate yet."))
			return false
		}
		rating := feedback.Rating(fields[1])
		if err := workflow.Rate(ctx, rating, msg); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return false
		}
		if rating == feedback.RatingDown {
			fmt.Println(noticeStyle.Render("Sorry to hear that. Type your feedback and press enter."))
		}

	case "/feedback":
		text := strings.TrimSpace(strings.TrimPrefix(line, "/feedback"))
		if err := workflow.SubmitFeedback(ctx, text); err != nil {
			logger.Debug("app: feedback not submitted: %v", err)
		}

	default:
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Unknown command %s", fields[0])))
	}
	return false
}
