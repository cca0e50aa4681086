package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ben-agnew/sc2ranks/libs/sc2ranks"
)

type Account struct {
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	BnetID   int64    `json:"bnetId"`
	Bracket  string   `json:"bracket"`
	Partners []string `json:"partners"`
	Stats    []string `json:"stats"`
	Id       string   `json:"id"`
	Command  string   `json:"command"`
}

func (a Account) Character() sc2ranks.Character {
	return sc2ranks.Character{Region: a.Region, Name: a.Name, BnetID: a.BnetID}
}

// Key identifies the account in the cache.
func (a Account) Key() string {
	return strings.ToLower(a.Region) + "/" + a.Name + "/" + strconv.FormatInt(a.BnetID, 10)
}

func (a Account) bracket() sc2ranks.Bracket {
	if a.Bracket == "" {
		return sc2ranks.Bracket1v1
	}
	bracket, err := sc2ranks.ParseBracket(a.Bracket)
	if err != nil {
		return sc2ranks.Bracket1v1
	}
	return bracket
}

type Configuration struct {
	TwitchUsername string    `env:"TWITCH_USER"`
	TwitchToken    string    `env:"TWITCH_TOKEN"`
	TwitchChannel  string    `env:"TWITCH_CHANNEL"`
	ApiKey         string    `env:"SC2RANKS_API_KEY"`
	ApiURL         string    `json:"apiUrl"`
	CacheUrl       string    `json:"cacheUrl"`
	CacheMinutes   int       `json:"cacheMinutes"`
	Accounts       []Account `json:"accounts"`
}

func (c Configuration) cacheTTL() time.Duration {
	if c.CacheMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.CacheMinutes) * time.Minute
}

func (c Configuration) validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}
	for i, account := range c.Accounts {
		if account.Region == "" || account.Name == "" || account.BnetID == 0 {
			return fmt.Errorf("account %d: region, name and bnetId are required", i+1)
		}
		if account.Bracket != "" {
			if _, err := sc2ranks.ParseBracket(account.Bracket); err != nil {
				return fmt.Errorf("account %d: %w", i+1, err)
			}
		}
	}
	return nil
}
