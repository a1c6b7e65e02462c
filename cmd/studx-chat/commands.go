package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studx/client"
	"studx/messaging"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a bearer token",
	RunE:  runLogin,
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List your conversations",
	RunE:    runConversations,
}

var chatCmd = &cobra.Command{
	Use:   "chat <conversationId>",
	Short: "Open a conversation; lines typed on stdin are sent",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

var startCmd = &cobra.Command{
	Use:   "start <userId>",
	Short: "Start (or find) a conversation with a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <conversationId>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	loginCmd.Flags().String("email", "", "Account e-mail")
	loginCmd.Flags().String("password", "", "Account password (prompted when empty)")
	_ = loginCmd.MarkFlagRequired("email")

	conversationsCmd.Flags().Bool("watch", false, "Keep refreshing the list")

	startCmd.Flags().String("name", "", "Display name to record for the other user")
	startCmd.Flags().String("email", "", "E-mail to record for the other user")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	c, err := newClient(cmd, false)
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	token, err := c.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runConversations(cmd *cobra.Command, _ []string) error {
	c, err := newClient(cmd, true)
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")

	if !watch {
		convs, err := c.ListConversations(cmd.Context())
		if err != nil {
			return err
		}
		printConversations(convs)
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	p := client.NewPoller(c, client.PollerOptions{
		Logger: newLogger(cmd),
		OnConversations: func(convs []messaging.ConversationSummary) {
			fmt.Print("\033[H\033[2J")
			printConversations(convs)
		},
	})
	return p.Run(ctx)
}

func printConversations(convs []messaging.ConversationSummary) {
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAST MESSAGE\tWHEN\tUNREAD")
	for _, conv := range convs {
		unread := ""
		if conv.UnreadCount > 0 {
			unread = fmt.Sprint(conv.UnreadCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", conv.ID, conv.Name, ellipsize(conv.LastMessage, 40), conv.Time, unread)
	}
	_ = w.Flush()
}

func runChat(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd, true)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	printNew := func(_ string, msgs []messaging.MessageView) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range msgs {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			who := m.Sender
			if m.IsMe {
				who = "you"
			}
			fmt.Printf("[%s] %s: %s\n", m.Timestamp, who, m.Text)
		}
	}

	p := client.NewPoller(c, client.PollerOptions{Logger: newLogger(cmd), OnMessages: printNew})
	if err := p.Open(ctx, args[0]); err != nil {
		p.Close()
		return err
	}
	defer p.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := p.Send(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			}
		}
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd, true)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")

	id, err := c.StartConversation(cmd.Context(), args[0], name, email)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd, true)
	if err != nil {
		return err
	}
	if err := c.DeleteConversation(cmd.Context(), args[0]); err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("conversation %s not found", args[0])
		}
		return err
	}
	fmt.Println("Conversation deleted")
	return nil
}

func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
