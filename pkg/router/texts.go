package router

import (
	"fmt"

	"chanfinder/pkg/render"
)

// Callback tokens carried by menu buttons.
const (
	callbackAnimeList  = "show_anime_list"
	callbackMovieList  = "show_anime_movie_list"
	callbackPopular    = "show_popular"
	callbackHelp       = "show_help"
	callbackBackToMenu = "back_to_menu"
	callbackAnimePref  = "anime_"
)

const movieListText = "All Anime Movies Available:\n1. Howls Moving Castle (2004)\n2. Grave of the Fireflies\n3. I want to eat your pancreas\n4. Princess Mononoke (1997)\n5. Your Name (kimi no nawa)\n6. weathering with you\n7. my neighbour totoro\n8. black clover: sword of the wizard king\n9. A Silent Voice\n10. chhota bheem movies"

const helpText = "🌟 Anime Channel Finder Bot Help 🌟\n\n" +
	"Available Commands:\n" +
	"• /start - Start the bot and see welcome message\n" +
	"• /help - Show this help message\n" +
	"• /anime - Show all available anime channels\n" +
	"• /movie - Show all available anime movies\n" +
	"• /command - Show all available commands\n" +
	"• /checkall - Show all filters with links (Group admins only)\n" +
	"• /ad on/off - Enable/disable ad deletion (Group admins only)\n\n" +
	"How to use:\n" +
	"Simply type the name of an anime to get a link to that channel.\n" +
	"For example:\n" +
	"• one piece\n" +
	"• attack on titan\n" +
	"• solo leveling\n\n" +
	"Note: Type the full name exactly as shown in the anime list for best results."

const commandText = "📋 All Available Commands 📋\n\n" +
	"General Commands:\n" +
	"• /start - Start the bot and see welcome message\n" +
	"• /help - Show help information\n" +
	"• /anime - Show all available anime channels\n" +
	"• /movie - Show all available anime movies\n" +
	"• /command - Show this command list\n\n" +
	"Group Admin Commands:\n" +
	"• /checkall - Show all filters with links\n" +
	"• /ad on - Enable ad deletion\n" +
	"• /ad off - Disable ad deletion\n\n" +
	"Bot Owner Commands:\n" +
	"• /filter <name> | <content> | <label> = <url>; ... - Add or replace a response\n" +
	"• /unfilter <name> - Remove a response"

const menuText = "I can help you find Telegram channels for your favorite anime and manga series.\n\nJust type the name of an anime to get a link!"

const (
	groupOnlyText     = "This command can only be used in groups!"
	adminOnlyText     = "Only group owners and administrators can use this command!"
	ownerOnlyText     = "Only the bot owner can change responses."
	roleCheckFailText = "Could not verify your permissions, please try again later."
	adUsageText       = "Please use '/ad on' or '/ad off'"
	adMissingArgText  = "Please specify 'on' or 'off' after the command!"
	adEnabledText     = "Ad deletion has been enabled. I will now delete promotional messages from other bots."
	adDisabledText    = "Ad deletion has been disabled. I will no longer delete promotional messages."
	filterUsageText   = "Usage: /filter <name> | <content> | <label> = <url>; <label> = <url>"
	unfilterUsageText = "Usage: /unfilter <name>"
	catalogErrorText  = "The response catalog is unavailable right now."
	checkAllHeader    = "📋 All Available Filters and Links:\n\n"
)

type popularEntry struct {
	label string
	name  string
}

var popular = []popularEntry{
	{label: "One Piece", name: "one piece"},
	{label: "Attack on Titan", name: "attack on titan"},
	{label: "Naruto Shippuden", name: "naruto shippuden"},
	{label: "Solo Leveling", name: "solo leveling"},
	{label: "Dragon Ball", name: "dragon ball"},
}

func startText(firstName string) string {
	if firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf("👋 Hi %s! Welcome to the Anime Channel Finder Bot!\n\n"+
		"I can help you find Telegram anime channels for your favorite anime and manga series.\n\n"+
		"Just type the name of an anime (like 'attack on titan' or 'one piece') "+
		"and I'll give you a link to join the channel.\n\n"+
		"You can also use me in groups to help members discover anime channels!", firstName)
}

func memberWelcomeText(firstName string) string {
	return fmt.Sprintf("👋 Welcome %s!\n\n"+
		"To see all available anime channels, type:\n"+
		"• /anime - Shows all anime channels\n"+
		"• /start - Shows welcome message\n"+
		"• /help - Shows help information\n\n"+
		"You can also type any anime name (like 'solo leveling' or 'attack on titan') "+
		"to get a direct link to that channel!", firstName)
}

const botWelcomeText = "👋 Hello everyone! I'm your Anime Channel Finder Bot!\n\n" +
	"To see all available anime channels, type:\n" +
	"• /anime - Shows all anime channels\n" +
	"• /start - Shows welcome message\n" +
	"• /help - Shows help information\n\n" +
	"You can also type any anime name (like 'solo leveling' or 'attack on titan') " +
	"to get a direct link to that channel!"

func menuButtons() [][]render.Button {
	return [][]render.Button{
		{{Label: "List All Anime", Token: callbackAnimeList}},
		{{Label: "List All Movies", Token: callbackMovieList}},
		{{Label: "Popular Channels", Token: callbackPopular}},
		{{Label: "Help", Token: callbackHelp}},
	}
}

func popularButtons() [][]render.Button {
	rows := make([][]render.Button, 0, len(popular)+1)
	for _, entry := range popular {
		rows = append(rows, []render.Button{{Label: entry.label, Token: animeToken(entry.name)}})
	}
	return append(rows, backButton(callbackBackToMenu, "Back to Menu"))
}

func backButton(token string, label string) []render.Button {
	return []render.Button{{Label: label, Token: token}}
}
