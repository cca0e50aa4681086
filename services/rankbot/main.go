package main

import (
	"context"
	"errors"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ben-agnew/sc2ranks/libs/cache"
	"github.com/ben-agnew/sc2ranks/libs/sc2ranks"
	"github.com/ben-agnew/sc2ranks/libs/sc2ranks/player"
	"github.com/ben-agnew/sc2ranks/libs/twitch"
	irc "github.com/gempir/go-twitch-irc/v3"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/tkanos/gonfig"
	"google.golang.org/api/iterator"
)

const (
	currentKey     = "rankbot:current"
	commandTimeout = 15 * time.Second
)

func main() {
	log.Info("Starting rankbot...")

	if err := godotenv.Load(); err != nil {
		log.WithField("event", "load_env").Debug(err)
	}

	var configuration Configuration
	err := gonfig.GetConf(configPath(), &configuration)
	if err != nil {
		log.WithField("event", "load_config").Fatal(err)
		return
	}
	if err := configuration.validate(); err != nil {
		log.WithField("event", "load_config").Fatal(err)
		return
	}

	rankCache, err := cache.NewCache(configuration.CacheUrl)
	if err != nil {
		log.WithField("event", "cache_connect").Fatal(err)
		return
	}
	defer rankCache.Close()

	opts := []sc2ranks.Option{sc2ranks.WithLogger(log.StandardLogger())}
	if configuration.ApiURL != "" {
		opts = append(opts, sc2ranks.WithBaseURL(configuration.ApiURL))
	}
	api := sc2ranks.NewClient(configuration.ApiKey, opts...)

	client := irc.NewClient(configuration.TwitchUsername, configuration.TwitchToken)
	client.SetJoinRateLimiter(irc.CreateVerifiedRateLimiter())

	bot := NewBot(configuration, api, rankCache, client.Say)
	bot.resetCurrent(context.Background())

	client.OnPrivateMessage(func(message irc.PrivateMessage) {
		go bot.handleMessage(message)
	})
	client.Join(configuration.TwitchChannel)

	client.OnConnect(func() {
		log.WithField("event", "irc_connected").Info("IRC connected")
	})

	err = client.Connect()
	if err != nil {
		log.WithField("event", "irc_connect").Fatal(err)
		return
	}
}

func configPath() string {
	if path := os.Getenv("RANKBOT_CONFIG"); path != "" {
		return path
	}
	return "config.json"
}

type Bot struct {
	config  Configuration
	api     *sc2ranks.Client
	cache   cache.Cache
	players []*player.Player
	say     func(channel, text string)
	log     log.FieldLogger
}

func NewBot(config Configuration, api *sc2ranks.Client, c cache.Cache, say func(channel, text string)) *Bot {
	b := &Bot{
		config: config,
		api:    api,
		cache:  c,
		say:    say,
		log:    log.StandardLogger(),
	}
	for _, account := range config.Accounts {
		b.players = append(b.players, player.ForCharacter(api, c, account.Character(), player.WithTTL(config.cacheTTL())))
	}
	return b
}

func (b *Bot) handleMessage(message irc.PrivateMessage) {
	if message.Channel != strings.ToLower(b.config.TwitchChannel) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch twitch.Command(message.Message) {
	case "!rank":
		b.rankCommand(ctx, message)
	case "!accounts":
		b.accountsCommand(message)
	case "!setcurrent":
		b.setCurrentCommand(ctx, message)
	case "!current":
		b.currentCommand(ctx, message)
	case "!sc2":
		b.characterCommand(ctx, message)
	case "!portrait":
		b.portraitCommand(ctx, message)
	case "!ladder":
		b.ladderCommand(ctx, message)
	case "!bot":
		b.say(message.Channel, twitch.Mention(message, "Hello"))
	default:
		b.checkCommands(ctx, message)
	}
}

func (b *Bot) resetCurrent(ctx context.Context) {
	err := b.cache.SetKeepTtl(ctx, currentKey, b.selection(0))
	if err != nil {
		b.log.WithField("event", "current_cache_set").Error(err)
	}
}

// currentIndex returns the selected account, falling back to the first one.
func (b *Bot) currentIndex(ctx context.Context) int {
	current, err := b.cache.Get(ctx, currentKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			b.log.WithField("event", "current_cache_get").Error(err)
		}
		b.resetCurrent(ctx)
		return 0
	}

	for i := range b.config.Accounts {
		if b.selection(i) == current {
			return i
		}
	}
	return 0
}

// selection identifies the account at index in the cache. Several accounts may share a
// character, so the position is part of it.
func (b *Bot) selection(index int) string {
	return strconv.Itoa(index+1) + ":" + b.config.Accounts[index].Key()
}

func (b *Bot) rankCommand(ctx context.Context, message irc.PrivateMessage) {
	b.say(message.Channel, b.rankReply(ctx, b.currentIndex(ctx)))
}

func (b *Bot) rankReply(ctx context.Context, index int) string {
	account := b.config.Accounts[index]
	bracket := account.bracket()

	partners := append([]string{account.Name}, account.Partners...)
	teams, err := b.players[index].TeamStats(ctx, bracket, partners...)
	if err != nil {
		b.log.WithField("event", "rank_fetch").WithField("account", account.Key()).Error(err)
		if sc2ranks.IsNotFound(err) {
			return account.Id + ": not found on sc2ranks"
		}
		return "Error getting rank"
	}

	return GetRankString(account, bracket, bestTeam(teams))
}

func bestTeam(teams []*sc2ranks.Node) *sc2ranks.Node {
	var best *sc2ranks.Node
	for _, team := range teams {
		if best == nil || team.Points() > best.Points() {
			best = team
		}
	}
	return best
}

func (b *Bot) accountsCommand(message irc.PrivateMessage) {
	if !twitch.IsModOrBroadcaster(message) {
		return
	}

	var accountNames []string
	for i, account := range b.config.Accounts {
		accountNames = append(accountNames, strconv.Itoa(i+1)+". "+account.Name+" ("+account.Id+")")
	}
	b.log.WithField("event", "accounts_command").Info(message.User.Name + " used accounts command")

	b.say(message.Channel, "Accounts: "+strings.Join(accountNames, ", "))
}

// findAccount accepts a 1-based account number or an account name.
func (b *Bot) findAccount(arg string) (int, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(b.config.Accounts) {
			return 0, false
		}
		return n - 1, true
	}
	for i, account := range b.config.Accounts {
		if strings.EqualFold(account.Name, arg) {
			return i, true
		}
	}
	return 0, false
}

func (b *Bot) setCurrentCommand(ctx context.Context, message irc.PrivateMessage) {
	if !twitch.IsModOrBroadcaster(message) {
		return
	}

	args := twitch.Args(message.Message)
	if len(args) == 0 {
		b.say(message.Channel, twitch.Mention(message, "Usage: !setcurrent <number|name>"))
		return
	}

	index, ok := b.findAccount(strings.Join(args, " "))
	if !ok {
		b.say(message.Channel, twitch.Mention(message, "Account not found"))
		return
	}
	account := b.config.Accounts[index]

	err := b.cache.SetKeepTtl(ctx, currentKey, b.selection(index))
	if err != nil {
		b.log.WithField("event", "current_cache_set").Error(err)
		b.say(message.Channel, twitch.Mention(message, "Error setting account"))
		return
	}
	b.log.WithField("event", "set_current_command").Info(message.User.Name + " set current account to " + account.Name)
	b.say(message.Channel, twitch.Mention(message, "Current account set to "+account.Name+" ("+account.Id+")"))
}

func (b *Bot) currentCommand(ctx context.Context, message irc.PrivateMessage) {
	account := b.config.Accounts[b.currentIndex(ctx)]
	b.say(message.Channel, twitch.Mention(message, "Current account is "+account.Name+" ("+account.Id+")"))
}

func (b *Bot) characterCommand(ctx context.Context, message irc.PrivateMessage) {
	usage := twitch.Mention(message, "Usage: !sc2 <region> <name> <bnet_id>")

	args := twitch.Args(message.Message)
	if len(args) != 3 {
		b.say(message.Channel, usage)
		return
	}
	bnetID, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || bnetID <= 0 {
		b.say(message.Channel, usage)
		return
	}

	p := player.ForCharacter(b.api, b.cache, sc2ranks.Character{Region: args[0], Name: args[1], BnetID: bnetID},
		player.WithTTL(b.config.cacheTTL()))
	character, err := p.BaseCharacter(ctx)
	if err != nil {
		b.log.WithField("event", "character_command").Error(err)
		var paramErr *sc2ranks.ParameterError
		switch {
		case sc2ranks.IsNotFound(err):
			b.say(message.Channel, twitch.Mention(message, "Character not found"))
		case errors.As(err, &paramErr):
			b.say(message.Channel, usage)
		default:
			b.say(message.Channel, "Error getting character")
		}
		return
	}

	b.say(message.Channel, twitch.Mention(message, GetCharacterString(character, p.ProfilePage())))
}

func (b *Bot) portraitCommand(ctx context.Context, message irc.PrivateMessage) {
	index := b.currentIndex(ctx)
	account := b.config.Accounts[index]
	p := b.players[index]

	portrait, err := p.Portrait(ctx, player.DefaultPortraitSize)
	if err != nil {
		b.log.WithField("event", "portrait_command").Error(err)
		b.say(message.Channel, "Error getting portrait")
		return
	}
	if portrait == nil {
		b.say(message.Channel, twitch.Mention(message, account.Id+" has no portrait"))
		return
	}

	reply := account.Id + ": " + portrait.Image
	if url := p.BnetURL(); url != "" {
		reply += " | " + url
	}
	b.say(message.Channel, twitch.Mention(message, reply))
}

// ladderCommand ranks every configured account in one bracket using the mass teams endpoint.
func (b *Bot) ladderCommand(ctx context.Context, message irc.PrivateMessage) {
	bracket := sc2ranks.Bracket1v1
	if args := twitch.Args(message.Message); len(args) > 0 {
		parsed, err := sc2ranks.ParseBracket(args[0])
		if err != nil {
			b.say(message.Channel, twitch.Mention(message, "Usage: !ladder [1v1|2v2|3v3|4v4]"))
			return
		}
		bracket = parsed
	}

	chars := make([]sc2ranks.Character, 0, len(b.config.Accounts))
	for _, account := range b.config.Accounts {
		chars = append(chars, account.Character())
	}

	var entries []ladderEntry
	it := b.api.FetchMassCharacterTeams(ctx, chars, bracket, false)
	for {
		character, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			b.log.WithField("event", "ladder_command").Error(err)
			b.say(message.Channel, "Error getting ladder")
			return
		}

		team := bestTeam(character.Teams())
		if team == nil {
			continue
		}
		entries = append(entries, ladderEntry{Name: character.Name(), League: team.League(), Points: team.Points()})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	b.say(message.Channel, GetLadderString(bracket, entries))
}

// checkCommands answers the per-account commands from the configuration.
func (b *Bot) checkCommands(ctx context.Context, message irc.PrivateMessage) {
	if !strings.HasPrefix(message.Message, "!") {
		return
	}

	command := twitch.Command(message.Message)
	for i, account := range b.config.Accounts {
		if account.Command != "" && command == strings.ToLower(account.Command) {
			b.say(message.Channel, b.rankReply(ctx, i))
			return
		}
	}
}
