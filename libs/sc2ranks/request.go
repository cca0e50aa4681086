package sc2ranks

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultBaseURL = "http://sc2ranks.com/api"
	SiteURL        = "http://sc2ranks.com"

	// MaxCharacters is the most characters sc2ranks accepts in one mass request.
	MaxCharacters = 98
)

// Valid regions are us, eu, kr, tw, sea, ru and la. "all" is accepted by division listings.
const (
	RegionAll = "all"
	LeagueAll = "all"
)

type SearchType string

const (
	SearchExact    SearchType = "exact"
	SearchContains SearchType = "contains"
	SearchStarts   SearchType = "starts"
	SearchEnds     SearchType = "ends"
)

type Bracket int

const (
	Bracket1v1 Bracket = 1
	Bracket2v2 Bracket = 2
	Bracket3v3 Bracket = 3
	Bracket4v4 Bracket = 4
)

// ParseBracket accepts "3v3", "3" or "3t".
func ParseBracket(s string) (Bracket, error) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] < '1' || s[0] > '9' {
		return 0, &ParameterError{Param: "bracket", Message: fmt.Sprintf("invalid bracket %q", s)}
	}
	return Bracket(s[0] - '0'), nil
}

func (b Bracket) String() string {
	return fmt.Sprintf("%dv%d", int(b), int(b))
}

// IDStyle selects how a character is identified in request paths and mass bodies.
type IDStyle int

const (
	// IDStyleBnetID uses name!bnet_id.
	IDStyleBnetID IDStyle = iota
	// IDStyleCode uses name$code.
	IDStyleCode
)

// Character identifies one player character.
type Character struct {
	Region string
	Name   string
	BnetID int64
	Code   string
}

// ProfileQuery holds the parameters of a profile search.
type ProfileQuery struct {
	Region string
	Name   string
	// Type is one of 1t, 2t, 3t, 4t or achieve.
	Type string
	// SubType is one of points, wins, losses or division.
	SubType string
	Value   string
}

// DefaultProfileQuery returns a 1v1 division profile search for name.
func DefaultProfileQuery(region, name string) ProfileQuery {
	return ProfileQuery{
		Region:  region,
		Name:    name,
		Type:    "1t",
		SubType: "division",
		Value:   "Division",
	}
}

func randomFlag(isRandom bool) int {
	if isRandom {
		return 1
	}
	return 0
}

func regionSegment(region string) (string, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return "", &ParameterError{Param: "region", Message: "region must be supplied"}
	}
	return url.PathEscape(region), nil
}

func nameSegment(name string) (string, error) {
	if name == "" {
		return "", &ParameterError{Param: "name", Message: "name must be supplied"}
	}
	return url.PathEscape(name), nil
}

func characterSegment(c Character, style IDStyle) (string, error) {
	name, err := nameSegment(c.Name)
	if err != nil {
		return "", err
	}

	switch style {
	case IDStyleCode:
		if c.Code == "" {
			return "", &ParameterError{Param: "code", Message: "character code must be supplied"}
		}
		return name + "$" + url.PathEscape(c.Code), nil
	default:
		if c.BnetID == 0 {
			return "", &ParameterError{Param: "bnet_id", Message: "battle.net id must be supplied"}
		}
		return name + "!" + strconv.FormatInt(c.BnetID, 10), nil
	}
}

func SearchPath(region, name string, searchType SearchType) (string, error) {
	r, err := regionSegment(region)
	if err != nil {
		return "", err
	}
	n, err := nameSegment(name)
	if err != nil {
		return "", err
	}
	if searchType == "" {
		searchType = SearchExact
	}
	return fmt.Sprintf("search/%s/%s/%s", searchType, r, n), nil
}

func ProfileSearchPath(q ProfileQuery) (string, error) {
	r, err := regionSegment(q.Region)
	if err != nil {
		return "", err
	}
	n, err := nameSegment(q.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("psearch/%s/%s/%s/%s/%s", r, n,
		url.PathEscape(strings.ToLower(q.Type)),
		url.PathEscape(strings.ToLower(q.SubType)),
		url.PathEscape(q.Value)), nil
}

func BaseCharacterPath(c Character, style IDStyle) (string, error) {
	return characterPath("base/char", c, style)
}

func BaseTeamsPath(c Character, style IDStyle) (string, error) {
	return characterPath("base/teams", c, style)
}

func CharacterTeamsPath(c Character, style IDStyle, bracket Bracket, isRandom bool) (string, error) {
	p, err := characterPath("char/teams", c, style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d/%d", p, bracket, randomFlag(isRandom)), nil
}

func characterPath(prefix string, c Character, style IDStyle) (string, error) {
	r, err := regionSegment(c.Region)
	if err != nil {
		return "", err
	}
	id, err := characterSegment(c, style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", prefix, r, id), nil
}

func CustomDivisionPath(divisionID int, region, league string, bracket Bracket, isRandom bool) (string, error) {
	if region == "" {
		region = RegionAll
	}
	if league == "" {
		league = LeagueAll
	}
	r, err := regionSegment(region)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("clist/%d/%s/%s/%d/%d", divisionID, r, url.PathEscape(league), bracket, randomFlag(isRandom)), nil
}

// MassBody encodes the form body of a mass request, one parameter set per character,
// indexed in order.
func MassBody(chars []Character, style IDStyle) (string, error) {
	var b strings.Builder
	for i, c := range chars {
		if c.Name == "" {
			return "", &ParameterError{Param: "name", Message: fmt.Sprintf("character %d has no name", i)}
		}
		if i > 0 {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "characters[%d][region]=%s&characters[%d][name]=%s",
			i, url.QueryEscape(strings.ToLower(c.Region)), i, url.QueryEscape(c.Name))

		switch style {
		case IDStyleCode:
			if c.Code == "" {
				return "", &ParameterError{Param: "code", Message: fmt.Sprintf("character %d has no code", i)}
			}
			fmt.Fprintf(&b, "&characters[%d][code]=%s", i, url.QueryEscape(c.Code))
		default:
			if c.BnetID == 0 {
				return "", &ParameterError{Param: "bnet_id", Message: fmt.Sprintf("character %d has no battle.net id", i)}
			}
			fmt.Fprintf(&b, "&characters[%d][bnet_id]=%d", i, c.BnetID)
		}
	}
	return b.String(), nil
}

// MassTeamsBody prefixes MassBody with the bracket shared by every character.
func MassTeamsBody(chars []Character, style IDStyle, bracket Bracket, isRandom bool) (string, error) {
	body, err := MassBody(chars, style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("team[bracket]=%d&team[is_random]=%d&%s", bracket, randomFlag(isRandom), body), nil
}

// CharacterURL returns the public sc2ranks page of a character. bnetID wins over code.
func CharacterURL(region, name string, bnetID int64, code string) (string, error) {
	region = strings.ToLower(region)
	switch {
	case bnetID != 0:
		return fmt.Sprintf("%s/char/%s/%d/%s", SiteURL, region, bnetID, url.PathEscape(name)), nil
	case code != "":
		return fmt.Sprintf("%s/charcode/%s/%s/%s", SiteURL, region, url.PathEscape(code), url.PathEscape(name)), nil
	default:
		return "", &ParameterError{Message: "either bnet_id or code must be supplied"}
	}
}
