package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/ui/chat"

	"github.com/spf13/cobra"
)

const (
	consoleChannel = "console"
	consoleChatID  = "-1000000000001"

	// consoleTapPrefix turns a typed line into a button tap.
	consoleTapPrefix = "!"
)

type consoleOptions struct {
	group    bool
	admin    bool
	bot      bool
	senderID string
	message  string
}

var consoleOpts consoleOptions

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Try the router locally",
	Long: `Routes typed messages through the same router the gateway uses, against the
local catalog, and shows what the bot would reply. Prefix a callback token
with "!" to tap a button, for example "!show_popular".`,
	Run: func(cmd *cobra.Command, args []string) {
		text := resolveMessage(args)

		rt, err := loadRuntime("cmd.chat")
		if err != nil {
			fmt.Println(err)
			return
		}

		ctx := context.Background()
		store, err := rt.openCatalog(ctx)
		if err != nil {
			fmt.Printf("failed to open catalog: %v\n", err)
			return
		}
		defer func() { _ = store.Close() }()

		r, _, err := rt.newRouter(store, nil)
		if err != nil {
			fmt.Printf("failed to configure router: %v\n", err)
			return
		}

		info := chat.RuntimeInfo{
			CatalogPath: rt.catalogPath(),
			Backend:     rt.cfg.Catalog.Backend,
			Entries:     len(store.LoadAll(ctx)),
			Sender:      consoleSenderLabel(consoleOpts),
		}
		route := consoleRoute(r.Handle, consoleOpts)

		if text != "" {
			err = chat.RunOneShot(ctx, route, text, info)
		} else {
			err = chat.RunInteractive(ctx, route, info)
		}
		if err != nil {
			fmt.Printf("console failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&consoleOpts.message, "message", "m", "", "message to route once")
	chatCmd.Flags().BoolVar(&consoleOpts.group, "group", false, "post as if in a group chat")
	chatCmd.Flags().BoolVar(&consoleOpts.admin, "admin", false, "post as a group admin")
	chatCmd.Flags().BoolVar(&consoleOpts.bot, "bot", false, "post as an automated sender")
	chatCmd.Flags().StringVar(&consoleOpts.senderID, "sender-id", "1", "sender user id")
}

func resolveMessage(args []string) string {
	if value := strings.TrimSpace(consoleOpts.message); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

// consoleRoute adapts the router to the console: each line becomes an
// inbound message in one fake chat, and "!token" lines become button taps
// on the previous bot message.
func consoleRoute(handle channel.Handler, opts consoleOptions) chat.RouteFunc {
	roles := channel.RoleCheckerFunc(func(context.Context, string, string) (bool, error) {
		return opts.admin, nil
	})

	kind := bus.ConversationPrivate
	if opts.group {
		kind = bus.ConversationSupergroup
	}

	var messageID atomic.Int64
	return func(ctx context.Context, text string) (bus.OutboundMessage, error) {
		msg := bus.InboundMessage{
			Channel:          consoleChannel,
			SenderID:         opts.senderID,
			SenderName:       "Console",
			ChatID:           consoleChatID,
			ConversationKind: kind,
			MessageID:        int(messageID.Add(1)),
			Content:          text,
			IsAutomated:      opts.bot,
		}

		if token, ok := strings.CutPrefix(text, consoleTapPrefix); ok && token != "" {
			msg.Kind = bus.InboundCallback
			msg.Content = strings.TrimSpace(token)
		}

		return handle(ctx, roles, msg)
	}
}

func consoleSenderLabel(opts consoleOptions) string {
	var parts []string
	parts = append(parts, "user "+opts.senderID)
	if opts.bot {
		parts = append(parts, "bot")
	}
	if opts.admin {
		parts = append(parts, "admin")
	}
	if opts.group {
		parts = append(parts, "in group")
	} else {
		parts = append(parts, "in private chat")
	}
	return strings.Join(parts, " · ")
}
