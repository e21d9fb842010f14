package user

// Achievement ids. The catalog below is the full static set; Unlocked may
// only ever contain ids from it.
const (
	AchFirstWords   = "first_words"
	AchChatterbox   = "chatterbox"
	AchSoulmate     = "soulmate"
	AchButtonMasher = "button_masher"
	AchHugDealer    = "hug_dealer"
)

// Progress counter keys.
const (
	ProgressMessages = "messages"
	ProgressHugs     = "hugs"
)

// MenuButtons are the inline keyboard actions counted toward AchButtonMasher.
var MenuButtons = []string{"hug", "kiss", "compliment", "show_stats", "show_level"}

// AchievementInfo describes one catalog entry.
type AchievementInfo struct {
	ID    string
	Name  string
	Emoji string
	Desc  string
}

// Catalog is the static achievement table, in unlock-check order.
var Catalog = []AchievementInfo{
	{ID: AchFirstWords, Name: "First Words", Emoji: "💬", Desc: "Send your first message"},
	{ID: AchChatterbox, Name: "Chatterbox", Emoji: "🗣", Desc: "Send 100 messages"},
	{ID: AchSoulmate, Name: "True Soulmate", Emoji: "👑", Desc: "Reach the top relationship level"},
	{ID: AchButtonMasher, Name: "Button Masher", Emoji: "🎛", Desc: "Try every menu button"},
	{ID: AchHugDealer, Name: "Hug Dealer", Emoji: "💖", Desc: "Ask for 50 hugs"},
}

// CatalogEntry returns the catalog entry for id, if any.
func CatalogEntry(id string) (AchievementInfo, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return AchievementInfo{}, false
}

// Achievements is the per-user gamification state. Unlocked and ButtonsUsed
// are sets in memory and sorted arrays on disk (StringSet round-trip);
// Progress counters only ever grow.
type Achievements struct {
	Unlocked    StringSet      `json:"unlocked"`
	Progress    map[string]int `json:"progress"`
	ButtonsUsed StringSet      `json:"buttons_used"`
}

func NewAchievements() *Achievements {
	return &Achievements{
		Unlocked:    NewStringSet(),
		Progress:    make(map[string]int),
		ButtonsUsed: NewStringSet(),
	}
}

// Normalize fills in collections missing from older persisted records.
func (a *Achievements) Normalize() {
	if a.Unlocked == nil {
		a.Unlocked = NewStringSet()
	}
	if a.Progress == nil {
		a.Progress = make(map[string]int)
	}
	if a.ButtonsUsed == nil {
		a.ButtonsUsed = NewStringSet()
	}
}

// Bump increments a progress counter.
func (a *Achievements) Bump(key string) {
	a.Progress[key]++
}

// UseButton records one distinct menu button press.
func (a *Achievements) UseButton(action string) {
	a.ButtonsUsed.Add(action)
}

// Evaluate unlocks every catalog achievement whose condition currently
// holds and returns the newly unlocked entries, in catalog order.
func (a *Achievements) Evaluate(stats *Stats) []AchievementInfo {
	var unlocked []AchievementInfo
	for _, info := range Catalog {
		if a.Unlocked.Has(info.ID) {
			continue
		}
		ok := false
		switch info.ID {
		case AchFirstWords:
			ok = stats.MessageCount >= 1
		case AchChatterbox:
			ok = stats.MessageCount >= 100
		case AchSoulmate:
			ok = Level(stats.MessageCount).ID == Levels[len(Levels)-1].ID
		case AchButtonMasher:
			ok = a.ButtonsUsed.Len() >= len(MenuButtons)
		case AchHugDealer:
			ok = a.Progress[ProgressHugs] >= 50
		}
		if ok {
			a.Unlocked.Add(info.ID)
			unlocked = append(unlocked, info)
		}
	}
	return unlocked
}
