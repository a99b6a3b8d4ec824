package match

import "chanfinder/pkg/catalog"

// RuleKind selects the cascade step a rule belongs to.
type RuleKind string

const (
	// KindKeyword rules fire when Trigger occurs inside a single message token
	// and select the catalog entry named by Target. A trigger of several words
	// is tested against as many consecutive tokens.
	KindKeyword RuleKind = "keyword"
	// KindLiteral rules fire when the whole normalized message equals Trigger
	// and answer with Reply, independent of the catalog.
	KindLiteral RuleKind = "literal"
)

// Rule is one declarative trigger record. Rules of a kind are evaluated in
// slice order.
type Rule struct {
	Kind    RuleKind
	Trigger string
	Target  string
	Reply   *catalog.Definition
}

func keyword(fragment string, target string) Rule {
	return Rule{Kind: KindKeyword, Trigger: fragment, Target: target}
}

func literal(trigger string, target string, reply catalog.Definition) Rule {
	return Rule{Kind: KindLiteral, Trigger: trigger, Target: target, Reply: &reply}
}

func joinButton(content string, label string, url string) catalog.Definition {
	return catalog.NewDefinition(content, catalog.Links{{Label: label, URL: url}})
}

const animeListText = "All Anime/Manga Channels Available:\n1. Dragon Ball Diama\n2. The Angel Next Door\n3. Dandadan\n4. Code Geass\n5. Tokyo Revengers\n6. 365 Days to the Wedding\n7. Bleach\n8. Banished From Hero's Party\n9. Castlevania Nocturne\n10. Hunter X Hunter\n11. Fairy Tail\n12. Tomb Raider\n13. True Beauty\n14. Trillion Game\n15. Reincarnated as a Slime\n16. Blue Lock\n17. The Exclusive Samurai\n18. Days With My Stepsister\n19. Vinland Saga\n20. Alya Sometimes Hides Feelings\n21. Nobody Remember Me\n22. Tower of God\n23. Haikyu\n24. Bye Bye Earth\n25. Black Summoner\n26. Mushoku Tensei\n27. Strongest Magician\n28. Kaiju No. 8\n29. Iceblade Sorcerer\n30. Makeine\n31. Black Clover\n32. Red Ranger\n33. Archdemon's Dilemma\n34. Dr. Stone\n35. Berserk of Gluttony\n36. Reincarnated Aristocrat\n37. One Piece\n38. Record of Ragnarok\n39. Solo Leveling\n40. Sakamoto Days\n41. Hell's Paradise\n42. Tokyo 24th Ward\n43. Wind Breaker\n44. i parry everything\n45. naruto shippuden\n46. devil may cry\n47. berserk\n48. JoJo's Bizarre Adventure\n49. My Hero Academia\n50. lookism\n51. demon slayer\n52. my dress up darling\n53. death note\n54. I'M Getting Married to a Girl I hate"

// AnimeListText is the full channel list served by the "anime list" trigger.
func AnimeListText() string {
	return animeListText
}

// DefaultRules returns the keyword table followed by the literal handlers.
func DefaultRules() []Rule {
	const married = "i'm getting married to a girl i hate in my class"

	return []Rule{
		keyword("pfp", "pfp"),
		keyword("profile", "pfp"),
		keyword("pic", "pfp"),
		keyword("masamune", "masamune kun no revenge"),
		keyword("aot", "attack on titan"),
		keyword("titan", "attack on titan"),
		keyword("naruto", "naruto shippuden"),
		keyword("solo", "solo leveling"),
		keyword("dragon", "dragon ball"),
		keyword("piece", "one piece"),
		keyword("one", "one piece"),
		keyword("samurai", "the exclusive samurai"),
		keyword("angel", "the angel next door"),
		keyword("next", "the angel next door"),
		keyword("slime", "reincarnated as a slime"),
		keyword("stone", "dr. stone"),
		keyword("dr.", "dr. stone"),
		keyword("clover", "black clover"),
		keyword("black", "black clover"),
		keyword("spy", "spy x family"),
		keyword("family", "spy x family"),
		keyword("tokyo 24th ward", "tokyo 24th ward"),
		keyword("tokyo revengers", "tokyo revengers"),
		keyword("married", married),
		keyword("girl", married),
		keyword("hate", married),
		keyword("hunter", "hunter x hunter"),
		keyword("vinland", "vinland saga"),
		keyword("bleach", "bleach"),
		keyword("sakamoto", "sakamoto days"),
		keyword("bye", "bye bye earth"),
		keyword("wind", "wind breaker"),
		keyword("breaker", "wind breaker"),
		keyword("parry", "i parry everything"),
		keyword("everything", "i parry everything"),
		keyword("devil", "devil may cry"),
		keyword("moving", "howls moving castle"),
		keyword("i want", "i want to eat your pancreas"),
		keyword("grave", "grave of the fireflies"),
		keyword("fireflies", "grave of the fireflies"),
		keyword("fire", "grave of the fireflies"),
		keyword("princess", "princess mononoke"),
		keyword("mononoke", "princess mononoke"),

		literal("admin", "owner", catalog.NewDefinition("my cute owner Lord @Saiksh_pagi 😉😉", nil)),
		literal("owner", "owner", catalog.NewDefinition("my cute owner Lord @Saiksh_pagi 😉😉", nil)),
		literal("anime list", "anime list", catalog.Definition{Content: animeListText}),
		literal("naruto shippuden", "naruto shippuden", joinButton(
			"Naruto Shippuden Hindi Official Channel:",
			"Join Naruto Shippuden Hindi Official Channel",
			"https://t.me/naruto_shippuden_hindi_by_itachi",
		)),
		literal("married", "married", joinButton(
			"I'M Getting Married to a Girl I hate in my class Hindi Official:",
			"Join I'M Getting Married to a Girl I hate channel",
			"https://t.me/+bEGR9J6aAFthZDU1",
		)),
		literal("girl i hate", "married", joinButton(
			"I'M Getting Married to a Girl I hate in my class Hindi Official:",
			"Join I'M Getting Married to a Girl I hate channel",
			"https://t.me/+bEGR9J6aAFthZDU1",
		)),
		literal("wolf king", "wolf king", joinButton(
			"Wolf King Hindi Official Channel:",
			"Join Wolf King Hindi Official Channel",
			"https://t.me/+LSkILVJlHh0zZDdl",
		)),
		literal("solo leveling", "solo leveling", joinButton(
			"Solo Leveling Channel:",
			"Join Solo Leveling Channel",
			"https://t.me/+hrOLw2weDKY2YzE1",
		)),
		literal("wind breaker", "wind breaker", joinButton(
			"Wind Breaker Channel:",
			"Join Wind Breaker Channel",
			"https://t.me/+CJBqVPIb7sdhNWJl",
		)),
	}
}

// DefaultRequestPrefixes are phrases tried in front of a catalog name.
func DefaultRequestPrefixes() []string {
	return []string{
		"i want", "give me", "looking for", "search for",
		"can i get", "please give", "need", "where is",
		"how to watch", "link for", "link to",
	}
}

// DefaultRequestSuffixes are phrases tried after a catalog name.
func DefaultRequestSuffixes() []string {
	return []string{
		"anime", "channel", "please", "link", "group",
		"telegram", "hindi", "english", "episode", "episodes",
	}
}
