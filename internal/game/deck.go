package game

import "math/rand"

// CardTemplate is a dealable lyric card: the display text shown in hand, the
// fillable template and how many blanks it declares.
type CardTemplate struct {
	Display    string
	Template   string
	BlankCount int
}

// Starter deck for dealt hands; extend as needed.
var LyricCardTemplates = []CardTemplate{
	{Display: "My ____ left me for ____", Template: "My {0} left me for {1}", BlankCount: 2},
	{Display: "I'm addicted to ____", Template: "I'm addicted to {0}", BlankCount: 1},
	{Display: "Last night I saw ____", Template: "Last night I saw {0}", BlankCount: 1},
	{Display: "Goodbye to ____", Template: "Goodbye to {0}", BlankCount: 1},
	{Display: "Dancing with ____", Template: "Dancing with {0}", BlankCount: 1},
	{Display: "My therapist said ____", Template: "My therapist said {0}", BlankCount: 1},
	{Display: "I wrote this for ____", Template: "I wrote this for {0}", BlankCount: 1},
	{Display: "A love song for ____", Template: "A love song for {0}", BlankCount: 1},
	{Display: "Confessions about ____", Template: "Confessions about {0}", BlankCount: 1},
	{Display: "This chorus is just ____", Template: "This chorus is just {0}", BlankCount: 1},
}

// VibeCards are the free-text genre/theme prompts a round is played against.
var VibeCards = []string{
	"Sad country ballad",
	"90s boy band banger",
	"Aggressive death metal",
	"Smooth late-night jazz",
	"Eurodance floor filler",
	"Whispery indie folk",
	"Overproduced stadium pop",
	"Gangsta rap with feelings",
	"Sea shanty",
	"Synthwave heartbreak",
	"Polka party anthem",
	"Gregorian chant remix",
}

// DealHand returns handSize templates drawn without replacement from a
// shuffled copy of the deck. A hand larger than the deck gets the whole deck.
func DealHand(handSize int) []CardTemplate {
	deck := make([]CardTemplate, len(LyricCardTemplates))
	copy(deck, LyricCardTemplates)
	rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	if handSize > len(deck) {
		handSize = len(deck)
	}
	return deck[:handSize]
}

// PickVibeCard returns a random vibe prompt for a new round.
func PickVibeCard() string {
	return VibeCards[rand.Intn(len(VibeCards))]
}
