// Package player binds sc2ranks lookups to any record that knows a character's name,
// realm and battle.net id, caching the responses.
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ben-agnew/sc2ranks/libs/cache"
	"github.com/ben-agnew/sc2ranks/libs/sc2ranks"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL          = 4 * time.Hour
	DefaultPortraitSize = 75
)

type Option func(*Player)

func WithTTL(ttl time.Duration) Option {
	return func(p *Player) {
		p.ttl = ttl
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Player) {
		p.log = logger
	}
}

// Player reads the character identity through accessors on every call, so it always
// reflects the current state of the record it was built from.
type Player struct {
	client *sc2ranks.Client
	cache  cache.Cache
	name   func() string
	realm  func() string
	bnetID func() int64
	ttl    time.Duration
	log    logrus.FieldLogger
}

// New builds a Player. A nil cache disables caching.
func New(client *sc2ranks.Client, c cache.Cache, name, realm func() string, bnetID func() int64, opts ...Option) *Player {
	p := &Player{
		client: client,
		cache:  c,
		name:   name,
		realm:  realm,
		bnetID: bnetID,
		ttl:    DefaultTTL,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ForCharacter builds a Player for a fixed character.
func ForCharacter(client *sc2ranks.Client, c cache.Cache, char sc2ranks.Character, opts ...Option) *Player {
	return New(client, c,
		func() string { return char.Name },
		func() string { return char.Region },
		func() int64 { return char.BnetID },
		opts...)
}

func (p *Player) Character() sc2ranks.Character {
	return sc2ranks.Character{Region: p.realm(), Name: p.name(), BnetID: p.bnetID()}
}

// ProfilePage links to the character on sc2ranks.com.
func (p *Player) ProfilePage() string {
	return fmt.Sprintf("http://www.sc2ranks.com/%s/%d/%s/", p.realm(), p.bnetID(), p.name())
}

// BnetURL links to the battle.net profile, or returns "" when the id or name is missing.
func (p *Player) BnetURL() string {
	if p.bnetID() == 0 || p.name() == "" {
		return ""
	}
	return fmt.Sprintf("http://%s.battle.net/sc2/en/profile/%d/1/%s/", p.realm(), p.bnetID(), p.name())
}

func (p *Player) cacheKey(parts ...any) string {
	key := fmt.Sprintf("sc2ranks:%s:%s:%d", strings.ToLower(p.realm()), p.name(), p.bnetID())
	for _, part := range parts {
		key += fmt.Sprintf(":%v", part)
	}
	return key
}

// cached returns the node stored under key, or fetches, stores and returns it.
// Cache failures are logged and fall through to the API.
func (p *Player) cached(ctx context.Context, key string, fetch func(ctx context.Context) (*sc2ranks.Node, error)) (*sc2ranks.Node, error) {
	logger := p.log.WithField("key", key)

	if p.cache != nil {
		data, err := p.cache.Get(ctx, key)
		switch {
		case err == nil:
			node, err := sc2ranks.DecodeNode([]byte(data))
			if err == nil {
				return node, nil
			}
			logger.WithField("event", "player_cache_decode").Warn(err)
		case !errors.Is(err, cache.ErrMiss):
			logger.WithField("event", "player_cache_get").Error(err)
		}
	}

	node, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		data, err := json.Marshal(node)
		if err != nil {
			logger.WithField("event", "player_cache_set").Error(err)
			return node, nil
		}
		if err := p.cache.SetWithTtl(ctx, key, string(data), p.ttl); err != nil {
			logger.WithField("event", "player_cache_set").Error(err)
		}
	}
	return node, nil
}

// BaseCharacter returns the cached base character data.
func (p *Player) BaseCharacter(ctx context.Context) (*sc2ranks.Node, error) {
	return p.cached(ctx, p.cacheKey("base"), func(ctx context.Context) (*sc2ranks.Node, error) {
		return p.client.FetchBaseCharacter(ctx, p.Character())
	})
}

// Teams returns the cached extended team info for one bracket.
func (p *Player) Teams(ctx context.Context, bracket sc2ranks.Bracket) (*sc2ranks.Node, error) {
	return p.cached(ctx, p.cacheKey("teams", int(bracket)), func(ctx context.Context) (*sc2ranks.Node, error) {
		return p.client.FetchCharacterTeams(ctx, p.Character(), bracket, false)
	})
}

// TeamStats returns the character's teams in bracket. When every team lists its members,
// only teams made up entirely of partners are kept; a team without members is a solo
// team and all teams are returned.
func (p *Player) TeamStats(ctx context.Context, bracket sc2ranks.Bracket, partners ...string) ([]*sc2ranks.Node, error) {
	data, err := p.Teams(ctx, bracket)
	if err != nil {
		return nil, err
	}
	return FilterTeams(data.Teams(), partners...), nil
}

// FilterTeams keeps the teams whose members are all named in partners. If any team has
// no members, teams is returned unfiltered.
func FilterTeams(teams []*sc2ranks.Node, partners ...string) []*sc2ranks.Node {
	allowed := make(map[string]bool, len(partners))
	for _, partner := range partners {
		allowed[partner] = true
	}

	var out []*sc2ranks.Node
	for _, team := range teams {
		members := team.Members()
		if len(members) == 0 {
			return dedupe(teams)
		}
		if allPartners(members, allowed) {
			out = append(out, team)
		}
	}
	return dedupe(out)
}

func allPartners(members []*sc2ranks.Node, allowed map[string]bool) bool {
	for _, member := range members {
		if !allowed[member.Name()] {
			return false
		}
	}
	return true
}

func dedupe(teams []*sc2ranks.Node) []*sc2ranks.Node {
	out := make([]*sc2ranks.Node, 0, len(teams))
	for _, team := range teams {
		seen := false
		for _, kept := range out {
			if kept.Equal(team) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, team)
		}
	}
	return out
}

// SearchCharacter looks the character's name up in its realm.
func (p *Player) SearchCharacter(ctx context.Context) (*sc2ranks.Node, error) {
	return p.client.SearchCharacter(ctx, p.realm(), p.name(), sc2ranks.SearchExact)
}

// Portrait holds what a page needs to render the profile icon from the sprite sheet.
type Portrait struct {
	Image    string `json:"image"`
	Position string `json:"position"`
}

// Portrait returns the sprite for the character's portrait at size pixels, or nil when the
// character has no portrait. A size of zero or less uses DefaultPortraitSize.
func (p *Player) Portrait(ctx context.Context, size int) (*Portrait, error) {
	if size <= 0 {
		size = DefaultPortraitSize
	}

	base, err := p.BaseCharacter(ctx)
	if err != nil {
		return nil, err
	}
	return PortraitOf(base, size), nil
}

func PortraitOf(base *sc2ranks.Node, size int) *Portrait {
	portrait := base.Portrait()
	if portrait == nil {
		return nil
	}

	x := -portrait.GetInt("column") * int64(size)
	y := -portrait.GetInt("row") * int64(size)
	return &Portrait{
		Image:    fmt.Sprintf("portraits-%d-%d.jpg", portrait.GetInt("icon_id"), size),
		Position: fmt.Sprintf("%dpx %dpx no-repeat; width: %dpx; height: %dpx;", x, y, size, size),
	}
}
